package service

import (
	"context"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestService(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, false)
	asker := app.user(t, "asker")
	owner := app.user(t, "owner")

	_, err := app.requests.Create(ctx, asker.ID, models.ItemRequestInput{Description: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = app.requests.Create(ctx, 999, models.ItemRequestInput{Description: "a tent"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := app.requests.Create(ctx, asker.ID, models.ItemRequestInput{Description: "a tent"})
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(testNow))

	app.now = testNow.Add(time.Hour)
	second, err := app.requests.Create(ctx, asker.ID, models.ItemRequestInput{Description: "a kayak"})
	require.NoError(t, err)

	_, err = app.items.Create(ctx, owner.ID, models.ItemInput{Name: "Tent", Description: "two person", Available: boolPtr(true), RequestID: &first.ID})
	require.NoError(t, err)

	own, err := app.requests.ListOwn(ctx, asker.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)
	assert.Empty(t, own[0].Items)
	assert.NotNil(t, own[0].Items)
	require.Len(t, own[1].Items, 1)
	assert.Equal(t, "Tent", own[1].Items[0].Name)

	others, err := app.requests.ListOthers(ctx, owner.ID, models.NewPage(0, 1))
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, second.ID, others[0].ID)

	none, err := app.requests.ListOthers(ctx, asker.ID, models.NewPage(0, 10))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = app.requests.ListOthers(ctx, owner.ID, models.NewPage(1, 2))
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := app.requests.Get(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a tent", got.Description)
	require.Len(t, got.Items, 1)

	_, err = app.requests.Get(ctx, owner.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := app.db.GetPendingOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, events.EventItemRequestCreated, pending[0].EventType)
}
