package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/models"
)

// CredentialRepo keeps records in process memory. Used by unit tests and
// local development runs without a database. Mirrors the merge-write
// semantics of the mongodb implementation exactly.
type CredentialRepo struct {
	mu      sync.Mutex
	records map[string]models.Credential
}

func NewCredentialRepo() *CredentialRepo {
	return &CredentialRepo{records: make(map[string]models.Credential)}
}

func (r *CredentialRepo) Get(ctx context.Context, uid string) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.records[uid]
	if !ok {
		return models.Credential{}, fmt.Errorf("repo error: %w", apperrors.ErrIntegrationNotFound)
	}
	return c, nil
}

func (r *CredentialRepo) UpsertTokens(ctx context.Context, uid string, accessToken string, expiresAt time.Time) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.records[uid]
	c.UID = uid
	c.AccessToken = accessToken
	c.ExpiresAt = expiresAt
	c.UpdatedAt = time.Now().UTC()
	r.records[uid] = c
	return c, nil
}

func (r *CredentialRepo) UpsertAll(ctx context.Context, uid string, accessToken string, refreshToken string, expiresAt time.Time) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.records[uid]
	c.UID = uid
	c.AccessToken = accessToken
	c.ExpiresAt = expiresAt
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.UpdatedAt = time.Now().UTC()
	r.records[uid] = c
	return c, nil
}

func (r *CredentialRepo) ClearAccess(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.records[uid]
	if !ok {
		return fmt.Errorf("repo error: %w", apperrors.ErrIntegrationNotFound)
	}
	c.AccessToken = ""
	c.ExpiresAt = time.Time{}
	c.UpdatedAt = time.Now().UTC()
	r.records[uid] = c
	return nil
}

func (r *CredentialRepo) Delete(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, uid)
	return nil
}

// Len reports the number of stored records. Test helper.
func (r *CredentialRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
