// Package store persists named layout documents so the serve surface can
// save a laid-out state and hand out a stable id for later retrieval.
// Backends: memory (development, tests) and mongo (deployments).
package store

import (
	"context"
	"time"

	"github.com/seqlane/seqlane/pkg/export"
)

// Record is one saved layout document.
type Record struct {
	ID        string           `json:"id" bson:"_id"`
	Name      string           `json:"name" bson:"name"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Document  *export.Document `json:"document,omitempty" bson:"document,omitempty"`
}

// Store is the saved-layout contract all backends implement.
type Store interface {
	// Save persists a document under a display name and returns the record
	// with its generated id.
	Save(ctx context.Context, name string, doc *export.Document) (*Record, error)
	// Get retrieves a record by id. Returns a NOT_FOUND error when absent.
	Get(ctx context.Context, id string) (*Record, error)
	// List returns all records without their documents, newest first.
	List(ctx context.Context) ([]Record, error)
	// Delete removes a record. Returns a NOT_FOUND error when absent.
	Delete(ctx context.Context, id string) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}
