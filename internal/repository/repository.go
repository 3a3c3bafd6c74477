package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tasaciones/crm-backend/internal/models"
)

// Credential repository interface
//
// Writes are merge-writes: each method touches only the fields it names and
// leaves the rest of the document untouched. That is what keeps a stored
// refresh token alive across concurrent access-token refreshes.
type CredentialRepo interface {
	// Get record by user id
	// If no record stored must return apperrors.ErrIntegrationNotFound
	Get(ctx context.Context, uid string) (models.Credential, error)

	// Merge-write the short-lived part of the record only.
	// Must never touch the stored refresh token.
	// Upserts: creates the record if it does not exist yet.
	UpsertTokens(ctx context.Context, uid string, accessToken string, expiresAt time.Time) (models.Credential, error)

	// First-consent write: access token, expiry and the refresh token.
	// An empty refreshToken must be skipped, not written, so a provider
	// response that omits it cannot erase a previously stored value.
	UpsertAll(ctx context.Context, uid string, accessToken string, refreshToken string, expiresAt time.Time) (models.Credential, error)

	// Sign-out: clear access token and expiry, keep the refresh token.
	// If no record stored must return apperrors.ErrIntegrationNotFound
	ClearAccess(ctx context.Context, uid string) error

	// Remove the whole record (revocation)
	Delete(ctx context.Context, uid string) error
}

// Property repository interface
type PropertyRepo interface {
	Create(ctx context.Context, p models.Property) (models.Property, error)

	// If property not found must return apperrors.ErrPropertyNotFound
	Get(ctx context.Context, id uuid.UUID) (models.Property, error)
	Update(ctx context.Context, p models.Property) (models.Property, error)
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context) ([]models.Property, error)
}

// Storage aggregates all repositories backed by one database handle
type Storage interface {
	Credentials() CredentialRepo
	Properties() PropertyRepo
}
