package models

import (
	"time"
)

// Credential is the per-user Google token state, one record per uid.
// RefreshToken lives on the server only and must never be rendered into
// an HTTP response.
type Credential struct {
	UID          string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// HasRefreshToken reports whether the record can be refreshed without
// sending the user through the consent flow again.
func (c Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// ValidAt reports whether the stored access token is still usable at
// the given instant, keeping the buffer as a safety margin against
// clock skew and in-flight request latency.
// The boundary counts as expired: exactly expiresAt-buffer means refresh.
func (c Credential) ValidAt(now time.Time, buffer time.Duration) bool {
	if c.AccessToken == "" || c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Add(-buffer).After(now)
}

// IssuedAccess is what token operations hand back to callers: the access
// token and its absolute expiry, nothing else.
type IssuedAccess struct {
	AccessToken string
	ExpiresAt   time.Time
}
