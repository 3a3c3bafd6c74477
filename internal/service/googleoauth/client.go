package googleoauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/logger"
)

// Scope requested from the consent popup. Offline access is requested by
// the browser client, so the first exchange also yields a refresh token.
const CalendarEventsScope = "https://www.googleapis.com/auth/calendar.events"

// The browser consent flow runs in popup mode and delivers the code over
// postMessage rather than a redirect.
const redirectPostMessage = "postmessage"

const defaultTimeout = 10 * time.Second

type Config struct {
	ClientID     string
	ClientSecret string

	// Endpoint of the token service. Defaults to Google, tests point it
	// at a local stub.
	Endpoint oauth2.Endpoint

	// Per-call deadline for upstream exchanges
	Timeout time.Duration
}

// Client performs the two upstream grant exchanges of the OAuth2 flow.
// It is the only place in the process that holds the client secret.
type Client struct {
	oauth   *oauth2.Config
	timeout time.Duration
	logger  logger.Logger
}

func NewClient(cfg Config, l logger.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperrors.ErrNotConfigured
	}

	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectPostMessage,
			Scopes:       []string{CalendarEventsScope},
		},
		timeout: timeout,
		logger:  l,
	}, nil
}

// ExchangeCode trades a one-time authorization code for a token pair.
// The refresh token is present only on first consent.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, c.classify("code exchange", err)
	}

	return withExpiry(token), nil
}

// RefreshToken mints a new access token from a stored refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, c.classify("token refresh", err)
	}

	return withExpiry(token), nil
}

// classify maps transport-level and provider 5xx failures to the retryable
// error and grant rejections to the hard one
func (c *Client) classify(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if status >= http.StatusInternalServerError {
			c.logger.Warn("Provider unavailable", "op", op, "status", status)
			return fmt.Errorf("%s: %w: status %d", op, apperrors.ErrUpstreamUnavailable, status)
		}
		c.logger.Warn("Provider rejected grant", "op", op, "status", status)
		return fmt.Errorf("%s: %w: %s", op, apperrors.ErrExchangeRejected, retrieveErr.ErrorCode)
	}

	c.logger.Warn("Provider unreachable", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrUpstreamUnavailable, err)
}

// withExpiry guards against a provider response without expires_in,
// which x/oauth2 surfaces as a zero Expiry
func withExpiry(token *oauth2.Token) *oauth2.Token {
	if token.Expiry.IsZero() {
		token.Expiry = time.Now().Add(time.Hour)
	}
	return token
}
