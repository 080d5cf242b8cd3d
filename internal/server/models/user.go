package models

import "time"

// User is an authenticated principal. The sharing core only ever needs the
// ID for equality checks; Salt and Verifier belong to the login flow.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
