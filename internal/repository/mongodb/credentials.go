package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/models"
)

type CredentialRepo struct {
	Coll *mongo.Collection
}

// Stored document. Expiry kept as epoch milliseconds, same as the browser
// clients that read this collection expect.
type credentialDoc struct {
	UID          string    `bson:"_id"`
	AccessToken  string    `bson:"access_token,omitempty"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	ExpiryDate   int64     `bson:"expiry_date,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d credentialDoc) toModel() models.Credential {
	c := models.Credential{
		UID:          d.UID,
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.ExpiryDate != 0 {
		c.ExpiresAt = time.UnixMilli(d.ExpiryDate)
	}
	return c
}

func (r *CredentialRepo) Get(ctx context.Context, uid string) (models.Credential, error) {
	var doc credentialDoc

	err := r.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: uid}}).Decode(&doc)
	switch {
	case err == nil:
		return doc.toModel(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Credential{}, fmt.Errorf("repo error: %w", apperrors.ErrIntegrationNotFound)
	default:
		return models.Credential{}, fmt.Errorf("db error: %w", err)
	}
}

// UpsertTokens merge-writes access token and expiry only.
// The $set document never names refresh_token, so a stored value survives
// any number of concurrent refresh writes.
func (r *CredentialRepo) UpsertTokens(ctx context.Context, uid string, accessToken string, expiresAt time.Time) (models.Credential, error) {
	set := bson.D{
		{Key: "access_token", Value: accessToken},
		{Key: "expiry_date", Value: expiresAt.UnixMilli()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}

	return r.merge(ctx, uid, set)
}

// UpsertAll is the first-consent write. The refresh token is included only
// when the provider actually issued one: writing an empty value would erase
// a token stored by an earlier consent.
func (r *CredentialRepo) UpsertAll(ctx context.Context, uid string, accessToken string, refreshToken string, expiresAt time.Time) (models.Credential, error) {
	set := bson.D{
		{Key: "access_token", Value: accessToken},
		{Key: "expiry_date", Value: expiresAt.UnixMilli()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	if refreshToken != "" {
		set = append(set, bson.E{Key: "refresh_token", Value: refreshToken})
	}

	return r.merge(ctx, uid, set)
}

func (r *CredentialRepo) merge(ctx context.Context, uid string, set bson.D) (models.Credential, error) {
	var doc credentialDoc

	err := r.Coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: uid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return models.Credential{}, fmt.Errorf("db error: %w", err)
	}

	return doc.toModel(), nil
}

// ClearAccess drops the short-lived part of the record on sign-out.
// The refresh token stays in place unless the caller explicitly deletes
// the whole record.
func (r *CredentialRepo) ClearAccess(ctx context.Context, uid string) error {
	res, err := r.Coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: uid}},
		bson.D{
			{Key: "$unset", Value: bson.D{
				{Key: "access_token", Value: ""},
				{Key: "expiry_date", Value: ""},
			}},
			{Key: "$set", Value: bson.D{
				{Key: "updated_at", Value: time.Now().UTC()},
			}},
		},
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrIntegrationNotFound)
	}
	return nil
}

func (r *CredentialRepo) Delete(ctx context.Context, uid string) error {
	_, err := r.Coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: uid}})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
