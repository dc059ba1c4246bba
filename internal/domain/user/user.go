package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// User is the persisted row of the users table.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	HashedPassword   string    `json:"-"` // never expose hash in JSON
	RegistrationDate time.Time `json:"registrationDate"`
	Interests        string    `json:"interests"`
}

// CreateUserRequest is the inbound registration payload.
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required,max=64"`
	Password  string `json:"password" binding:"required,maxbytes=72"` // bcrypt input limit, in bytes
	Interests string `json:"interests" binding:"max=1024"`
}

// NewUser is what the repository inserts: the password is already hashed.
type NewUser struct {
	Username         string
	HashedPassword   string
	RegistrationDate time.Time
	Interests        string
}

type Public struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Interests string `json:"interests"`
}

func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Interests: u.Interests,
	}
}
