// Package history persists summaries of completed pull runs so they can be
// listed and re-inspected later.
//
// Two backends are provided:
//   - file: JSON files under the user config directory, for CLI usage
//   - mongo: a MongoDB collection, for server deployments
//
// Records store the run's options and URL log plus result dimensions, not the
// fetched data itself; re-running the logged URLs reproduces the data.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run record does not exist.
var ErrNotFound = errors.New("run not found")

// Record summarizes one completed pull run.
type Record struct {
	ID         string    `json:"id" bson:"id"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	Level      string    `json:"level" bson:"level"`
	ZCTAs      string    `json:"zctas,omitempty" bson:"zctas,omitempty"`
	Indicators []string  `json:"indicators" bson:"indicators"`
	Age        bool      `json:"age" bson:"age"`
	Sex        bool      `json:"sex" bson:"sex"`
	Race       bool      `json:"race" bson:"race"`
	URLs       []string  `json:"urls" bson:"urls"`
	Rows       int       `json:"rows" bson:"rows"`
	Columns    int       `json:"columns" bson:"columns"`
}

// Store is the interface for run-history backends.
type Store interface {
	// Save persists a run record.
	Save(ctx context.Context, rec *Record) error

	// List returns records ordered newest first.
	List(ctx context.Context) ([]Record, error)

	// Get retrieves a record by run id.
	// Returns ErrNotFound if no such run exists.
	Get(ctx context.Context, id string) (*Record, error)

	// Close releases backend resources.
	Close() error
}
