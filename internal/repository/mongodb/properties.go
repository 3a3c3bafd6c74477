package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/models"
)

type PropertyRepo struct {
	Coll *mongo.Collection
}

type propertyDoc struct {
	ID         string    `bson:"_id"`
	Title      string    `bson:"title"`
	Address    string    `bson:"address"`
	Zone       string    `bson:"zone,omitempty"`
	Type       string    `bson:"type,omitempty"`
	SurfaceM2  float64   `bson:"surface_m2,omitempty"`
	Rooms      int       `bson:"rooms,omitempty"`
	PriceCents int64     `bson:"price_cents,omitempty"`
	Notes      string    `bson:"notes,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toPropertyDoc(p models.Property) propertyDoc {
	return propertyDoc{
		ID:         p.ID.String(),
		Title:      p.Title,
		Address:    p.Address,
		Zone:       p.Zone,
		Type:       p.Type,
		SurfaceM2:  p.SurfaceM2,
		Rooms:      p.Rooms,
		PriceCents: p.PriceCents,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (d propertyDoc) toModel() (models.Property, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Property{}, fmt.Errorf("malformed property id %q: %w", d.ID, err)
	}

	return models.Property{
		ID:         id,
		Title:      d.Title,
		Address:    d.Address,
		Zone:       d.Zone,
		Type:       d.Type,
		SurfaceM2:  d.SurfaceM2,
		Rooms:      d.Rooms,
		PriceCents: d.PriceCents,
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func (r *PropertyRepo) Create(ctx context.Context, p models.Property) (models.Property, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.Coll.InsertOne(ctx, toPropertyDoc(p))
	if err != nil {
		return models.Property{}, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PropertyRepo) Get(ctx context.Context, id uuid.UUID) (models.Property, error) {
	var doc propertyDoc

	err := r.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	switch {
	case err == nil:
		return doc.toModel()
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Property{}, fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	default:
		return models.Property{}, fmt.Errorf("db error: %w", err)
	}
}

func (r *PropertyRepo) Update(ctx context.Context, p models.Property) (models.Property, error) {
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := toPropertyDoc(p)

	res, err := r.Coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc)
	if err != nil {
		return models.Property{}, fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Property{}, fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	}
	return p, nil
}

func (r *PropertyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.Coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrPropertyNotFound)
	}
	return nil
}

func (r *PropertyRepo) List(ctx context.Context) ([]models.Property, error) {
	cursor, err := r.Coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close(ctx) // nolint:errcheck

	properties := []models.Property{}
	for cursor.Next(ctx) {
		var doc propertyDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return properties, nil
}
