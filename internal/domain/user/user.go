package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is the account projection this service needs: identity, contact
// address and the activity timestamps the notification pipeline selects on.
type User struct {
	id                uint
	sid               string
	email             string
	displayName       string
	emailUnsubscribed bool
	accountToken      string
	lastActivityAt    *time.Time
	createdAt         time.Time
}

type UserParams struct {
	ID                uint
	SID               string
	Email             string
	DisplayName       string
	EmailUnsubscribed bool
	AccountToken      string
	LastActivityAt    *time.Time
	CreatedAt         time.Time
}

func ReconstructUser(p UserParams) *User {
	return &User{
		id:                p.ID,
		sid:               p.SID,
		email:             p.Email,
		displayName:       p.DisplayName,
		emailUnsubscribed: p.EmailUnsubscribed,
		accountToken:      p.AccountToken,
		lastActivityAt:    p.LastActivityAt,
		createdAt:         p.CreatedAt,
	}
}

func (u *User) ID() uint                   { return u.id }
func (u *User) SID() string                { return u.sid }
func (u *User) Email() string              { return u.email }
func (u *User) DisplayName() string        { return u.displayName }
func (u *User) EmailUnsubscribed() bool    { return u.emailUnsubscribed }
func (u *User) AccountToken() string       { return u.accountToken }
func (u *User) LastActivityAt() *time.Time { return u.lastActivityAt }
func (u *User) CreatedAt() time.Time       { return u.createdAt }

// ActiveWithin reports whether the user has app activity after the cutoff.
// A user with no recorded activity is treated as inactive.
func (u *User) ActiveWithin(cutoff time.Time) bool {
	return u.lastActivityAt != nil && u.lastActivityAt.After(cutoff)
}

// IsNewSince reports whether the account was created after the cutoff.
func (u *User) IsNewSince(cutoff time.Time) bool {
	return u.createdAt.After(cutoff)
}
