package entity

import "time"

// Identity is the authenticated principal resolved from a bearer token.
// Subject is the user's UUID.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

func (i Identity) SubjectID() string { return i.Subject }
