package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a listed real-estate unit ("inmueble") managed by the brokerage.
type Property struct {
	ID         uuid.UUID
	Title      string
	Address    string
	Zone       string
	Type       string
	SurfaceM2  float64
	Rooms      int
	PriceCents int64
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
