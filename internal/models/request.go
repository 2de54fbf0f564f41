package models

import "time"

// ItemRequest is a user's ask for an item that is not in the catalog yet.
type ItemRequest struct {
	ID          int64     `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	RequesterID int64     `json:"requesterId" db:"requester_id"`
	CreatedAt   time.Time `json:"created" db:"created_at"`
}

// ItemRequestView is a request together with the items created to fulfill it.
type ItemRequestView struct {
	ItemRequest
	Items []Item `json:"items"`
}

type ItemRequestInput struct {
	Description string `json:"description"`
}
