package googleoauth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/tasaciones/crm-backend/internal/apperrors"
)

// Unconfigured stands in for Client when the OAuth client id/secret are not
// set. The server still boots and serves the rest of the API; every token
// operation answers with the configuration error, same as the deployed
// function did.
type Unconfigured struct{}

func (Unconfigured) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return nil, apperrors.ErrNotConfigured
}

func (Unconfigured) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return nil, apperrors.ErrNotConfigured
}
