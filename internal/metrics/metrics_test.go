package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/bookings", 201)
		IncOutbox("booking_created", "completed")
	})

	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("APPROVED"))
	IncBooking("APPROVED")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("APPROVED")))
}
