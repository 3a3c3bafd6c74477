package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/tasaciones/crm-backend/internal/repository"
)

const (
	credentialColl = "calendar_credentials"
	propertyColl   = "properties"
)

type Storage struct {
	db *mongo.Database
}

func NewStorage(db *mongo.Database) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Credentials() repository.CredentialRepo {
	return &CredentialRepo{Coll: s.db.Collection(credentialColl)}
}

func (s *Storage) Properties() repository.PropertyRepo {
	return &PropertyRepo{Coll: s.db.Collection(propertyColl)}
}
