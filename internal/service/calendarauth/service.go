package calendarauth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/models"
	"github.com/tasaciones/crm-backend/internal/repository"
)

// Upstream token service, the only component allowed to see the client secret
type upstreamClient interface {
	// Trade a one-time consent code for a token pair
	// Refresh token present only on first consent
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// Mint a new access token from a stored refresh token
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type Config struct {
	// RevokeOnSignOut also drops the stored refresh token when a user
	// signs out, forcing a fresh consent next time. Default keeps it.
	RevokeOnSignOut bool
}

// Service owns the credential lifecycle: consent-code exchange, access-token
// refresh and sign-out. Persistence is merge-write only, so the stored
// refresh token survives every operation except an explicit revocation.
type Service struct {
	cfg      Config
	upstream upstreamClient
	creds    repository.CredentialRepo
	logger   logger.Logger

	// Concurrent refreshes for one uid collapse into a single upstream
	// call; every caller gets the same fresh token.
	refreshes singleflight.Group

	// Overlapping consent exchanges for one uid run serialized. Two codes
	// delivered by a double-clicked popup both complete, last write wins.
	consentMu sync.Mutex
	consents  map[string]*sync.Mutex
}

func NewService(cfg Config, upstream upstreamClient, creds repository.CredentialRepo, l logger.Logger) (*Service, error) {
	if upstream == nil || creds == nil {
		return nil, errors.New("upstream client and credential repo must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		cfg:      cfg,
		upstream: upstream,
		creds:    creds,
		logger:   l,
		consents: make(map[string]*sync.Mutex),
	}, nil
}

// ExchangeCode performs the first-consent scenario: code in, access token and
// expiry out. The refresh token goes to storage and nowhere else.
func (s *Service) ExchangeCode(ctx context.Context, code string, uid string) (models.IssuedAccess, error) {
	lock := s.consentLock(uid)
	lock.Lock()
	defer lock.Unlock()

	token, err := s.upstream.ExchangeCode(ctx, code)
	if err != nil {
		return models.IssuedAccess{}, err
	}

	cred, err := s.creds.UpsertAll(ctx, uid, token.AccessToken, token.RefreshToken, token.Expiry)
	if err != nil {
		return models.IssuedAccess{}, fmt.Errorf("can't persist exchanged tokens: %w", err)
	}

	s.logger.Info("Consent code exchanged",
		"uid", uid,
		"got_refresh_token", token.RefreshToken != "",
		"expiry_date", cred.ExpiresAt.UnixMilli(),
	)

	return models.IssuedAccess{AccessToken: cred.AccessToken, ExpiresAt: cred.ExpiresAt}, nil
}

// Refresh mints a new access token for the user from the stored refresh
// token. Returns apperrors.ErrIntegrationNotFound when the user never
// consented and apperrors.ErrNoRefreshToken when the record cannot be
// refreshed without a new consent.
func (s *Service) Refresh(ctx context.Context, uid string) (models.IssuedAccess, error) {
	v, err, _ := s.refreshes.Do(uid, func() (any, error) {
		return s.refresh(ctx, uid)
	})
	if err != nil {
		return models.IssuedAccess{}, err
	}

	return v.(models.IssuedAccess), nil
}

func (s *Service) refresh(ctx context.Context, uid string) (models.IssuedAccess, error) {
	cred, err := s.creds.Get(ctx, uid)
	if err != nil {
		return models.IssuedAccess{}, err
	}

	if !cred.HasRefreshToken() {
		return models.IssuedAccess{}, fmt.Errorf("uid %s: %w", uid, apperrors.ErrNoRefreshToken)
	}

	token, err := s.upstream.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return models.IssuedAccess{}, err
	}

	// Merge-write of the short-lived fields only. A refresh response that
	// carries no refresh token cannot erase the stored one.
	updated, err := s.creds.UpsertTokens(ctx, uid, token.AccessToken, token.Expiry)
	if err != nil {
		return models.IssuedAccess{}, fmt.Errorf("can't persist refreshed token: %w", err)
	}

	s.logger.Debug("Access token refreshed", "uid", uid, "expiry_date", updated.ExpiresAt.UnixMilli())

	return models.IssuedAccess{AccessToken: updated.AccessToken, ExpiresAt: updated.ExpiresAt}, nil
}

// SignOut clears the access token and its expiry. The refresh token is kept
// unless RevokeOnSignOut is set, in which case the whole record goes away.
func (s *Service) SignOut(ctx context.Context, uid string) error {
	if s.cfg.RevokeOnSignOut {
		return s.creds.Delete(ctx, uid)
	}

	return s.creds.ClearAccess(ctx, uid)
}

func (s *Service) consentLock(uid string) *sync.Mutex {
	s.consentMu.Lock()
	defer s.consentMu.Unlock()

	lock, ok := s.consents[uid]
	if !ok {
		lock = &sync.Mutex{}
		s.consents[uid] = lock
	}
	return lock
}
