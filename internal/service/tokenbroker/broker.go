package tokenbroker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/models"
	"github.com/tasaciones/crm-backend/internal/repository"
)

// Refresh 5 minutes before expiry: clock skew plus in-flight latency margin.
const expiryBuffer = 5 * time.Minute

const (
	retryBase     = 500 * time.Millisecond
	retryAttempts = 3
)

// Issuer refreshes the stored access token of a user
type Issuer interface {
	Refresh(ctx context.Context, uid string) (models.IssuedAccess, error)
}

// Broker answers one question: "give me an access token for this user that
// is valid right now". It serves from the stored record when the token has
// comfortable lifetime left and refreshes through the Issuer otherwise.
// Hard failures (no record, no refresh token, rejected grant) surface as-is
// so the caller can send the user through the consent flow; transient
// upstream failures are retried with backoff before giving up.
type Broker struct {
	creds  repository.CredentialRepo
	issuer Issuer
	logger logger.Logger

	// injectable clock
	now func() time.Time
}

func New(creds repository.CredentialRepo, issuer Issuer, l logger.Logger) (*Broker, error) {
	if creds == nil || issuer == nil {
		return nil, errors.New("credential repo and issuer must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Broker{
		creds:  creds,
		issuer: issuer,
		logger: l,
		now:    time.Now,
	}, nil
}

// GetValidAccessToken returns an access token valid for at least the expiry
// buffer, refreshing it first when needed. A returned error means the token
// could not be obtained without user interaction.
func (b *Broker) GetValidAccessToken(ctx context.Context, uid string) (string, error) {
	cred, err := b.creds.Get(ctx, uid)
	if err != nil {
		return "", err
	}

	if cred.ValidAt(b.now(), expiryBuffer) {
		return cred.AccessToken, nil
	}

	if !cred.HasRefreshToken() {
		// Terminal: no upstream call can help here
		return "", fmt.Errorf("uid %s: %w", uid, apperrors.ErrNoRefreshToken)
	}

	b.logger.Debug("Access token expired or near expiry, refreshing",
		"uid", uid,
		"had_token", cred.AccessToken != "",
		"expiry_date", cred.ExpiresAt.UnixMilli(),
	)

	var issued models.IssuedAccess
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		issued, err = b.issuer.Refresh(ctx, uid)
		if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	return issued.AccessToken, nil
}
