package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/models"
)

type PropertyRepo struct {
	mu         sync.Mutex
	properties map[uuid.UUID]models.Property
}

func NewPropertyRepo() *PropertyRepo {
	return &PropertyRepo{properties: make(map[uuid.UUID]models.Property)}
}

func (r *PropertyRepo) Create(ctx context.Context, p models.Property) (models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.properties[p.ID] = p
	return p, nil
}

func (r *PropertyRepo) Get(ctx context.Context, id uuid.UUID) (models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.properties[id]
	if !ok {
		return models.Property{}, fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	}
	return p, nil
}

func (r *PropertyRepo) Update(ctx context.Context, p models.Property) (models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[p.ID]; !ok {
		return models.Property{}, fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	}
	p.UpdatedAt = time.Now().UTC()
	r.properties[p.ID] = p
	return p, nil
}

func (r *PropertyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	}
	delete(r.properties, id)
	return nil
}

func (r *PropertyRepo) List(ctx context.Context) ([]models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]models.Property, 0, len(r.properties))
	for _, p := range r.properties {
		list = append(list, p)
	}
	return list, nil
}
