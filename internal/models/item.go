package models

import "time"

type Item struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Available   bool      `json:"available" db:"available"`
	OwnerID     int64     `json:"ownerId" db:"owner_id"`
	RequestID   *int64    `json:"requestId,omitempty" db:"request_id"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
	UpdatedAt   time.Time `json:"-" db:"updated_at"`
}

type ItemRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   *bool  `json:"available"`
	RequestID   *int64 `json:"requestId,omitempty"`
}

// ItemPatch carries a partial update; nil fields are left untouched.
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// ItemDetail is an item as seen by a particular user. Booking annotations are
// only filled for the owner.
type ItemDetail struct {
	Item
	LastBooking *BookingShort `json:"lastBooking"`
	NextBooking *BookingShort `json:"nextBooking"`
	Comments    []Comment     `json:"comments"`
}
