// Package dlq fetches dead-letter records from Kafka or from NDJSON dumps.
package dlq

import (
	"context"
	"errors"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

var (
	// ErrTopicNotFound is returned when the DLQ topic does not exist
	ErrTopicNotFound = errors.New("dlq topic not found")
)

// Source yields the raw records of one batch in a stable order.
type Source interface {
	// Fetch reads the batch. A source may return a partial sample with a nil
	// error when its fetch deadline expires after some records were read.
	Fetch(ctx context.Context) ([]domain.RawRecord, error)

	// Name identifies the source in logs and run history.
	Name() string
}
