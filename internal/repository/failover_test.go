package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverLimitRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverLimitRepository(primary, fallback, &logger)
	current := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return current }
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, int64(1), 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, 1, 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, repo.IsDegraded())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailsUsesFallback", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, int64(1), 10, time.Minute).Return(false, errors.New("redis down")).Once()
		fallback.On("CheckRateLimit", ctx, int64(1), 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, 1, 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.IsDegraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWithinRecoveryInterval", func(t *testing.T) {
		current = current.Add(30 * time.Second)
		fallback.On("CheckRateLimit", ctx, int64(2), 10, time.Minute).Return(false, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, 2, 10, time.Minute)
		assert.NoError(t, err)
		assert.False(t, allowed)
		primary.AssertNumberOfCalls(t, "CheckRateLimit", 2)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoversAfterInterval", func(t *testing.T) {
		current = current.Add(2 * time.Minute)
		primary.On("CheckRateLimit", ctx, int64(3), 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, 3, 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, repo.IsDegraded())
		primary.AssertExpectations(t)
	})
}
