package model

import "time"

// User is the owner of zero or more Accounts.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Emails    []string  `json:"emails"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"` // IANA name, default "UTC"
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IANATimezone returns the user's timezone, defaulting to UTC when unset.
func (u *User) IANATimezone() string {
	if u.Timezone == "" {
		return "UTC"
	}
	return u.Timezone
}

// OwnsAddress reports whether addr belongs to this user (case-insensitive).
func (u *User) OwnsAddress(addr string) bool {
	addr = normalizeEmail(addr)
	if normalizeEmail(u.Email) == addr {
		return true
	}
	for _, e := range u.Emails {
		if normalizeEmail(e) == addr {
			return true
		}
	}
	return false
}
