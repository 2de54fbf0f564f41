package service

import (
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// clock is embedded by services that evaluate rules against the current time.
type clock struct {
	now func() time.Time
}

func newClock() clock {
	return clock{now: time.Now}
}

// SetClock replaces the time source, used to simulate the passage of time.
func (c *clock) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	c.now = now
}

// Now reports the current time of the service clock.
func (c *clock) Now() time.Time {
	return c.now()
}

// ParseState converts a state query value into a BookingState.
func ParseState(raw string) (models.BookingState, error) {
	state, ok := models.ParseBookingState(raw)
	if !ok {
		return state, domain.Validationf("Unknown state: %s", strings.TrimSpace(raw))
	}
	return state, nil
}

func validatePage(page models.Page) error {
	if err := page.Validate(); err != nil {
		return domain.Validationf("%s", err.Error())
	}
	return nil
}
