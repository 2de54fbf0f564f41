package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	base := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	var aliceRequests []*models.ItemRequest
	for i := 0; i < 3; i++ {
		r := &models.ItemRequest{Description: "need something", RequesterID: alice.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, db.CreateRequest(ctx, r))
		aliceRequests = append(aliceRequests, r)
	}
	bobRequest := &models.ItemRequest{Description: "bob needs", RequesterID: bob.ID, CreatedAt: base}
	require.NoError(t, db.CreateRequest(ctx, bobRequest))

	got, err := db.GetRequest(ctx, aliceRequests[0].ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.RequesterID)

	_, err = db.GetRequest(ctx, 999)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	own, err := db.GetRequestsByRequester(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, aliceRequests[2].ID, own[0].ID)
	assert.Equal(t, aliceRequests[0].ID, own[2].ID)

	others, err := db.GetRequestsExcept(ctx, bob.ID, models.NewPage(0, 2))
	require.NoError(t, err)
	require.Len(t, others, 2)
	assert.Equal(t, aliceRequests[2].ID, others[0].ID)

	others, err = db.GetRequestsExcept(ctx, bob.ID, models.NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, aliceRequests[0].ID, others[0].ID)

	others, err = db.GetRequestsExcept(ctx, alice.ID, models.NewPage(0, 10))
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, bobRequest.ID, others[0].ID)
}
