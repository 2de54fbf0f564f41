package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	clock
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewItemService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		clock:    newClock(),
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *ItemService) Create(ctx context.Context, ownerID int64, in models.ItemInput) (*models.Item, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	switch {
	case name == "":
		return nil, domain.Validationf("item name is required")
	case description == "":
		return nil, domain.Validationf("item description is required")
	case in.Available == nil:
		return nil, domain.Validationf("item availability is required")
	}

	if in.RequestID != nil {
		if _, err := s.repo.GetRequest(ctx, *in.RequestID); err != nil {
			return nil, err
		}
	}

	item := &models.Item{
		Name:        name,
		Description: description,
		Available:   *in.Available,
		OwnerID:     ownerID,
		RequestID:   in.RequestID,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("Item created")
	return item, nil
}

// Update applies a partial change; only the owner may update an item.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.NotFoundf("item %d not found", itemID)
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item that has never been booked.
func (s *ItemService) Delete(ctx context.Context, ownerID, itemID int64) error {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != ownerID {
		return domain.NotFoundf("item %d not found", itemID)
	}

	booked, err := s.repo.ItemHasBookings(ctx, itemID)
	if err != nil {
		return err
	}
	if booked {
		return domain.Conflictf("item %d has bookings", itemID)
	}

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", itemID).Msg("Item deleted")
	return nil
}

// GetDetail returns the item with comments; the owner also sees last and next bookings.
func (s *ItemService) GetDetail(ctx context.Context, itemID, userID int64) (*models.ItemDetail, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, item, userID)
}

func (s *ItemService) detail(ctx context.Context, item *models.Item, userID int64) (*models.ItemDetail, error) {
	detail := &models.ItemDetail{Item: *item}

	if item.OwnerID == userID {
		now := s.now()
		last, err := s.repo.GetLastBooking(ctx, item.ID, item.OwnerID, now)
		if err != nil {
			return nil, err
		}
		next, err := s.repo.GetNextBooking(ctx, item.ID, item.OwnerID, now)
		if err != nil {
			return nil, err
		}
		detail.LastBooking = shortBooking(last)
		detail.NextBooking = shortBooking(next)
	}

	comments, err := s.repo.GetCommentsByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	detail.Comments = comments
	return detail, nil
}

// ListByOwner returns the owner's items with booking annotations and comments.
func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemDetail, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}

	details := make([]*models.ItemDetail, 0, len(items))
	for _, item := range items {
		d, err := s.detail(ctx, item, ownerID)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// Search finds available items whose name or description contains text. Blank text finds nothing.
func (s *ItemService) Search(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}
	return s.repo.SearchAvailableItems(ctx, text, page)
}

// CreateComment records feedback from a user who finished an approved booking of the item.
func (s *ItemService) CreateComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error) {
	author, err := s.repo.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.now()
	finished, err := s.repo.HasFinishedApprovedBooking(ctx, itemID, authorID, now)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, domain.Validationf("cannot leave a comment")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validationf("comment text is required")
	}

	comment := &models.Comment{
		Text:       text,
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name,
		CreatedAt:  now,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.CommentEventPayload{CommentID: comment.ID, ItemID: itemID, AuthorID: authorID, Text: text}
		if err := s.eventBus.PublishJSON(events.EventCommentCreated, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("Failed to publish comment event")
		}
	}
	return comment, nil
}

func shortBooking(b *models.Booking) *models.BookingShort {
	if b == nil {
		return nil
	}
	return &models.BookingShort{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}
