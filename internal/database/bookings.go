package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, start_date, end_date, item_id, booker_id, status, created_at, updated_at`

// inactiveStatuses never block an item nor count as last/next bookings.
var inactiveStatuses = []interface{}{string(models.StatusRejected), string(models.StatusCanceled)}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertBooking(ctx, tx, booking)
	})
}

// CreateBookingExclusive inserts the booking only if no active booking of the
// same item intersects the half-open period [start, end).
func (db *DB) CreateBookingExclusive(ctx context.Context, booking *models.Booking) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := tx.BindNamed(`SELECT COUNT(*) FROM bookings
            WHERE item_id = :item_id
            AND status NOT IN (:rejected, :canceled)
            AND start_date < :end
            AND end_date > :start`, map[string]interface{}{
			"item_id":  booking.ItemID,
			"rejected": string(models.StatusRejected),
			"canceled": string(models.StatusCanceled),
			"start":    booking.Start.UTC(),
			"end":      booking.End.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to bind overlap query: %w", err)
		}

		var overlapping int
		if err := tx.GetContext(ctx, &overlapping, query, args...); err != nil {
			return fmt.Errorf("failed to check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return domain.Conflictf("item %d is already booked for this period", booking.ItemID)
		}

		return insertBooking(ctx, tx, booking)
	})
}

func insertBooking(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	now := time.Now().UTC()
	if booking.Status == "" {
		booking.Status = models.StatusWaiting
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (start_date, end_date, item_id, booker_id, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		booking.Start.UTC(), booking.End.UTC(), booking.ItemID, booking.BookerID, string(booking.Status), now, now,
	)
	if err != nil {
		return mapError(err, "booking")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("booking %d", id))
	}
	return &booking, nil
}

// UpdateBookingStatus moves a booking to a new status only if it still has the expected one.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Conflictf("booking %d is no longer %s", id, from)
	}
	return nil
}

// ListBookings returns bookings matching the filter, newest start first.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	ds := dialect().
		From(goqu.T("bookings").As("b")).
		Select(
			goqu.I("b.id").As("id"),
			goqu.I("b.start_date").As("start_date"),
			goqu.I("b.end_date").As("end_date"),
			goqu.I("b.item_id").As("item_id"),
			goqu.I("b.booker_id").As("booker_id"),
			goqu.I("b.status").As("status"),
			goqu.I("b.created_at").As("created_at"),
			goqu.I("b.updated_at").As("updated_at"),
		)

	if filter.OwnerID != 0 {
		ds = ds.InnerJoin(
			goqu.T("items").As("i"),
			goqu.On(goqu.I("i.id").Eq(goqu.I("b.item_id"))),
		).Where(goqu.I("i.owner_id").Eq(filter.OwnerID))
	}
	if filter.BookerID != 0 {
		ds = ds.Where(goqu.I("b.booker_id").Eq(filter.BookerID))
	}
	if cond := stateCondition(filter.State, filter.Now.UTC()); cond != nil {
		ds = ds.Where(cond)
	}

	query, args, err := ds.
		Order(goqu.I("b.start_date").Desc(), goqu.I("b.id").Desc()).
		Limit(uint(filter.Page.Limit())).
		Offset(uint(filter.Page.Offset())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}

	bookings := []*models.Booking{}
	if err := db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func stateCondition(state models.BookingState, now time.Time) exp.Expression {
	switch state {
	case models.StateCurrent:
		return goqu.And(
			goqu.I("b.start_date").Lte(now),
			goqu.I("b.end_date").Gte(now),
		)
	case models.StatePast:
		return goqu.I("b.end_date").Lt(now)
	case models.StateFuture:
		return goqu.I("b.start_date").Gt(now)
	case models.StateWaiting:
		return goqu.I("b.status").Eq(string(models.StatusWaiting))
	case models.StateRejected:
		return goqu.I("b.status").Eq(string(models.StatusRejected))
	default:
		return nil
	}
}

// GetLastBooking returns the most recently ended booking of the item that
// started at or before now, ignoring bookings made by the owner. Nil when none.
func (db *DB) GetLastBooking(ctx context.Context, itemID, ownerID int64, now time.Time) (*models.Booking, error) {
	query, args, err := sqlx.In(`SELECT `+bookingColumns+` FROM bookings
        WHERE item_id = ? AND booker_id != ? AND status NOT IN (?) AND start_date <= ?
        ORDER BY end_date DESC, id DESC LIMIT 1`,
		itemID, ownerID, inactiveStatuses, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to build last booking query: %w", err)
	}
	return db.optionalBooking(ctx, query, args...)
}

// GetNextBooking returns the nearest booking of the item starting after now,
// ignoring bookings made by the owner. Nil when none.
func (db *DB) GetNextBooking(ctx context.Context, itemID, ownerID int64, now time.Time) (*models.Booking, error) {
	query, args, err := sqlx.In(`SELECT `+bookingColumns+` FROM bookings
        WHERE item_id = ? AND booker_id != ? AND status NOT IN (?) AND start_date > ?
        ORDER BY start_date ASC, id ASC LIMIT 1`,
		itemID, ownerID, inactiveStatuses, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to build next booking query: %w", err)
	}
	return db.optionalBooking(ctx, query, args...)
}

func (db *DB) optionalBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	var booking models.Booking
	err := db.GetContext(ctx, &booking, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// HasFinishedApprovedBooking reports whether the booker had an approved booking of the item that ended before now.
func (db *DB) HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM bookings
        WHERE item_id = ? AND booker_id = ? AND status = ? AND end_date < ?)`,
		itemID, bookerID, string(models.StatusApproved), now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check finished bookings: %w", err)
	}
	return exists, nil
}
