package calendarauth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/repository/memory"
)

// upstreamStub fakes the Google token endpoint client
type upstreamStub struct {
	exchangeFn func(ctx context.Context, code string) (*oauth2.Token, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

func (s *upstreamStub) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return s.exchangeFn(ctx, code)
}

func (s *upstreamStub) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return s.refreshFn(ctx, refreshToken)
}

func TestService(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(time.Hour).Truncate(time.Millisecond).UTC()

	newService := func(t *testing.T, cfg Config, upstream *upstreamStub) (*Service, *memory.CredentialRepo) {
		t.Helper()

		repo := memory.NewCredentialRepo()
		s, err := NewService(cfg, upstream, repo, nil)
		require.NoError(t, err, "creating service should not fail")
		return s, repo
	}

	t.Run("ExchangeCode", func(t *testing.T) {
		t.Run("stores pair returns access only", func(t *testing.T) {
			upstream := &upstreamStub{
				exchangeFn: func(_ context.Context, code string) (*oauth2.Token, error) {
					require.Equal(t, "code-1", code)
					return &oauth2.Token{AccessToken: "T1", RefreshToken: "R1", Expiry: expiry}, nil
				},
			}
			s, repo := newService(t, Config{}, upstream)

			issued, err := s.ExchangeCode(t.Context(), "code-1", "user-1")

			require.NoError(t, err)
			require.Equal(t, "T1", issued.AccessToken)
			require.Equal(t, expiry, issued.ExpiresAt)

			cred, err := repo.Get(t.Context(), "user-1")
			require.NoError(t, err, "record should be stored")
			require.Equal(t, "T1", cred.AccessToken)
			require.Equal(t, "R1", cred.RefreshToken, "refresh token should be persisted")
		})

		t.Run("re-consent without refresh token keeps stored one", func(t *testing.T) {
			upstream := &upstreamStub{
				exchangeFn: func(_ context.Context, _ string) (*oauth2.Token, error) {
					// Repeated consent: Google returns the access part only
					return &oauth2.Token{AccessToken: "T2", Expiry: expiry}, nil
				},
			}
			s, repo := newService(t, Config{}, upstream)

			_, err := repo.UpsertAll(t.Context(), "user-1", "T1", "R1", expiry)
			require.NoError(t, err)

			_, err = s.ExchangeCode(t.Context(), "code-2", "user-1")
			require.NoError(t, err)

			cred, err := repo.Get(t.Context(), "user-1")
			require.NoError(t, err)
			require.Equal(t, "T2", cred.AccessToken, "access token should be replaced")
			require.Equal(t, "R1", cred.RefreshToken, "stored refresh token should survive")
		})

		t.Run("upstream rejection not persisted", func(t *testing.T) {
			upstream := &upstreamStub{
				exchangeFn: func(_ context.Context, _ string) (*oauth2.Token, error) {
					return nil, apperrors.ErrExchangeRejected
				},
			}
			s, repo := newService(t, Config{}, upstream)

			_, err := s.ExchangeCode(t.Context(), "bad-code", "user-1")

			require.ErrorIs(t, err, apperrors.ErrExchangeRejected)
			require.Equal(t, 0, repo.Len(), "no record should be created on failed exchange")
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("mints new access token", func(t *testing.T) {
			upstream := &upstreamStub{
				refreshFn: func(_ context.Context, refreshToken string) (*oauth2.Token, error) {
					require.Equal(t, "R1", refreshToken, "stored refresh token should be used")
					return &oauth2.Token{AccessToken: "T2", Expiry: expiry}, nil
				},
			}
			s, repo := newService(t, Config{}, upstream)

			_, err := repo.UpsertAll(t.Context(), "user-1", "T1", "R1", time.Now().Add(-time.Hour))
			require.NoError(t, err)

			issued, err := s.Refresh(t.Context(), "user-1")

			require.NoError(t, err)
			require.Equal(t, "T2", issued.AccessToken)

			cred, err := repo.Get(t.Context(), "user-1")
			require.NoError(t, err)
			require.Equal(t, "R1", cred.RefreshToken, "refresh must not drop the refresh token")
		})

		t.Run("unknown uid", func(t *testing.T) {
			s, _ := newService(t, Config{}, &upstreamStub{})

			_, err := s.Refresh(t.Context(), "nobody")

			require.ErrorIs(t, err, apperrors.ErrIntegrationNotFound)
		})

		t.Run("record without refresh token", func(t *testing.T) {
			upstream := &upstreamStub{
				refreshFn: func(_ context.Context, _ string) (*oauth2.Token, error) {
					t.Fatal("upstream must not be called for a record without refresh token")
					return nil, nil
				},
			}
			s, repo := newService(t, Config{}, upstream)

			_, err := repo.UpsertTokens(t.Context(), "user-1", "T1", expiry)
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), "user-1")

			require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
		})

		t.Run("concurrent refreshes collapse into one upstream call", func(t *testing.T) {
			var calls atomic.Int32
			gate := make(chan struct{})
			upstream := &upstreamStub{
				refreshFn: func(_ context.Context, _ string) (*oauth2.Token, error) {
					calls.Add(1)
					<-gate
					return &oauth2.Token{AccessToken: "T2", Expiry: expiry}, nil
				},
			}
			s, repo := newService(t, Config{}, upstream)

			_, err := repo.UpsertAll(t.Context(), "user-1", "T1", "R1", time.Now().Add(-time.Hour))
			require.NoError(t, err)

			const workers = 8
			var wg sync.WaitGroup
			results := make([]string, workers)
			errs := make([]error, workers)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					issued, err := s.Refresh(context.Background(), "user-1")
					results[i] = issued.AccessToken
					errs[i] = err
				}()
			}

			// Let the goroutines pile up before releasing the upstream call
			time.Sleep(50 * time.Millisecond)
			close(gate)
			wg.Wait()

			for i := range workers {
				require.NoError(t, errs[i])
				require.Equal(t, "T2", results[i], "every caller should get the refreshed token")
			}
			require.Equal(t, int32(1), calls.Load(), "concurrent refreshes should share one upstream call")
		})
	})

	t.Run("SignOut", func(t *testing.T) {
		t.Run("keeps refresh token by default", func(t *testing.T) {
			s, repo := newService(t, Config{}, &upstreamStub{})

			_, err := repo.UpsertAll(t.Context(), "user-1", "T1", "R1", expiry)
			require.NoError(t, err)

			err = s.SignOut(t.Context(), "user-1")

			require.NoError(t, err)
			cred, err := repo.Get(t.Context(), "user-1")
			require.NoError(t, err, "record should still exist")
			require.Empty(t, cred.AccessToken, "access token should be cleared")
			require.Equal(t, "R1", cred.RefreshToken, "refresh token should be kept for silent re-auth")
		})

		t.Run("revokes whole record when configured", func(t *testing.T) {
			s, repo := newService(t, Config{RevokeOnSignOut: true}, &upstreamStub{})

			_, err := repo.UpsertAll(t.Context(), "user-1", "T1", "R1", expiry)
			require.NoError(t, err)

			err = s.SignOut(t.Context(), "user-1")

			require.NoError(t, err)
			require.Equal(t, 0, repo.Len(), "record should be deleted")
		})
	})
}
