package apperrors

import (
	"errors"
)

var (
	// Server-side OAuth client id/secret are not configured.
	// Fatal: nothing to retry until an operator fixes the deployment.
	ErrNotConfigured = errors.New("google oauth client is not configured")

	// The upstream provider rejected the authorization code or refresh token
	// (already used, expired or malformed). Must not be retried silently.
	ErrExchangeRejected = errors.New("token exchange rejected by provider")

	// Talking to the upstream provider failed on the transport level
	// (network error or timeout). Safe to retry with backoff.
	ErrUpstreamUnavailable = errors.New("token provider unavailable")

	// No credential record stored for the user.
	ErrIntegrationNotFound = errors.New("no calendar integration found")

	// Credential record exists but carries no refresh token.
	// Terminal state: the user has to run the consent flow again.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// Calendar API rejected an access token that looked valid locally.
	// Callers must drop their signed-in state instead of retrying.
	ErrSignedOut = errors.New("calendar rejected access token")

	ErrPropertyNotFound = errors.New("property not found")
)
