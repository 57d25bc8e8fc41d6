package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// Password holds the bcrypt hash and never leaves the application layer.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubjectID returns the identifier tokens are minted for.
func (u *User) SubjectID() string {
	if u == nil {
		return ""
	}
	return u.ID
}
