package property

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tasaciones/crm-backend/internal/models"
	"github.com/tasaciones/crm-backend/internal/repository"
)

// Service manages the brokerage's property listings
type Service struct {
	repo repository.PropertyRepo
}

func NewService(repo repository.PropertyRepo) (*Service, error) {
	if repo == nil {
		return nil, errors.New("property repo must not be nil")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) Create(ctx context.Context, p models.Property) (models.Property, error) {
	p.ID = uuid.New()
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Property, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces all user-editable fields of the property with the given
// values, keeping id and creation time.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p models.Property) (models.Property, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Property{}, err
	}

	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Property, error) {
	return s.repo.List(ctx)
}
