package models

import "time"

type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}
