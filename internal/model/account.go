// Package model defines the data types shared across the prep pipeline:
// accounts, users, meetings, harvested artifacts, and the brief itself.
package model

import "time"

// Provider identifies which upstream API an Account belongs to.
type Provider string

const (
	ProviderGoogle Provider = "google"
)

// AccountStatus reflects TokenGuard's view of an account's OAuth health.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusRevoked AccountStatus = "revoked"
)

// Account is one provider-linked identity (mail+drive+calendar under one
// address) owned by a User.
type Account struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Provider      Provider      `json:"provider"`
	Email         string        `json:"email"`
	AccessToken   string        `json:"access_token"`
	RefreshToken  string        `json:"refresh_token"`
	ExpiresAt     *time.Time    `json:"expires_at"`
	Scopes        []string      `json:"scopes"`
	IsPrimary     bool          `json:"is_primary"`
	Status        AccountStatus `json:"status"`
	LastSyncAt    *time.Time    `json:"last_sync_at,omitempty"`
	LastSyncError string        `json:"last_sync_error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Expired reports whether the access token is missing or already expired.
// It does NOT apply the 5-minute TokenGuard buffer — that's TokenGuard's job.
func (a *Account) Expired(now time.Time) bool {
	if a.AccessToken == "" || a.ExpiresAt == nil {
		return true
	}
	return !a.ExpiresAt.After(now)
}
