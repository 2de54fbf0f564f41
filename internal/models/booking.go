package models

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
	StatusCanceled BookingStatus = "CANCELED"
)

// CanTransition reports whether a booking may move from one status to another.
// Only WAITING bookings can be decided; APPROVED and REJECTED are terminal.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	if s != StatusWaiting {
		return false
	}
	return to == StatusApproved || to == StatusRejected
}

type Booking struct {
	ID        int64         `json:"id" db:"id"`
	Start     time.Time     `json:"start" db:"start_date"`
	End       time.Time     `json:"end" db:"end_date"`
	ItemID    int64         `json:"itemId" db:"item_id"`
	BookerID  int64         `json:"bookerId" db:"booker_id"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"-" db:"created_at"`
	UpdatedAt time.Time     `json:"-" db:"updated_at"`
}

// BookingView is a booking enriched with snapshots of the item and the booker.
type BookingView struct {
	ID     int64         `json:"id"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Status BookingStatus `json:"status"`
	Item   ItemRef       `json:"item"`
	Booker UserRef       `json:"booker"`
}

// BookingShort is the compact booking shown on item details.
type BookingShort struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"bookerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type BookingInput struct {
	ItemID int64     `json:"itemId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// BookingState selects which bookings a listing returns.
type BookingState int

const (
	StateAll BookingState = iota
	StateCurrent
	StatePast
	StateFuture
	StateWaiting
	StateRejected
)

var bookingStateNames = map[BookingState]string{
	StateAll:      "ALL",
	StateCurrent:  "CURRENT",
	StatePast:     "PAST",
	StateFuture:   "FUTURE",
	StateWaiting:  "WAITING",
	StateRejected: "REJECTED",
}

func (s BookingState) String() string {
	if name, ok := bookingStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BookingState(%d)", int(s))
}

// ParseBookingState converts a query value into a BookingState. An empty value
// means ALL. Matching is case-insensitive.
func ParseBookingState(raw string) (BookingState, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return StateAll, true
	}
	for state, name := range bookingStateNames {
		if name == value {
			return state, true
		}
	}
	return StateAll, false
}

// BookingFilter is the store-level form of a listing request.
type BookingFilter struct {
	BookerID int64
	OwnerID  int64
	State    BookingState
	Now      time.Time
	Page     Page
}
