package models

import (
	"fmt"
	"strings"
	"time"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// ParseTime accepts RFC 3339 or a zoneless local timestamp, which is read as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time: %q", raw)
}

// BookingRequest is the wire form of a new booking.
type BookingRequest struct {
	ItemID int64  `json:"itemId"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Input converts the request into a BookingInput. Missing times stay zero.
func (b BookingRequest) Input() (BookingInput, error) {
	in := BookingInput{ItemID: b.ItemID}
	var err error
	if strings.TrimSpace(b.Start) != "" {
		if in.Start, err = ParseTime(b.Start); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(b.End) != "" {
		if in.End, err = ParseTime(b.End); err != nil {
			return in, err
		}
	}
	return in, nil
}
