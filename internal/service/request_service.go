package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	clock
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRequestService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		clock:    newClock(),
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *RequestService) Create(ctx context.Context, userID int64, in models.ItemRequestInput) (*models.ItemRequest, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, domain.Validationf("request description is required")
	}

	request := &models.ItemRequest{
		Description: description,
		RequesterID: userID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.ItemRequestEventPayload{RequestID: request.ID, RequesterID: userID, Description: description}
		if err := s.eventBus.PublishJSON(events.EventItemRequestCreated, payload); err != nil {
			s.logger.Error().Err(err).Int64("request_id", request.ID).Msg("Failed to publish request event")
		}
	}
	return request, nil
}

// ListOwn returns the user's requests, newest first, each with the items created for it.
func (s *RequestService) ListOwn(ctx context.Context, userID int64) ([]*models.ItemRequestView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	requests, err := s.repo.GetRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

// ListOthers pages through requests made by other users, newest first.
func (s *RequestService) ListOthers(ctx context.Context, userID int64, page models.Page) ([]*models.ItemRequestView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := validatePage(page); err != nil {
		return nil, err
	}
	requests, err := s.repo.GetRequestsExcept(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

func (s *RequestService) Get(ctx context.Context, userID, requestID int64) (*models.ItemRequestView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	views, err := s.withItems(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *RequestService) withItems(ctx context.Context, requests []*models.ItemRequest) ([]*models.ItemRequestView, error) {
	views := make([]*models.ItemRequestView, 0, len(requests))
	for _, r := range requests {
		items, err := s.repo.GetItemsByRequest(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		view := &models.ItemRequestView{ItemRequest: *r, Items: make([]models.Item, 0, len(items))}
		for _, item := range items {
			view.Items = append(view.Items, *item)
		}
		views = append(views, view)
	}
	return views, nil
}
