package etl

import (
	"context"

	"finetl/pkg/models"
)

// Extractor is a pull-based, finite, non-restartable sequence of records.
// Next returns ErrEndOfSource once the source is exhausted; a fresh
// Extractor re-reads from the source's start.
type Extractor interface {
	Next() (*models.Record, error)
	Close() error
}

// Step is one transformation in the ordered chain. Apply must not mutate
// its input; it returns the transformed record, or nil to drop the record.
type Step struct {
	Name  string
	Apply func(*models.Record) (*models.Record, error)
}

// Loader writes a batch to the sink and reports how many records were
// confirmed before any error. Writes are at-least-once within a run.
type Loader interface {
	Load(ctx context.Context, batch models.Batch) (int, error)
	Close() error
}
