// Package engine runs the full classification pipeline over one batch of
// DLQ records: normalize, classify, bucket, aggregate, cross-validate, rank.
package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/aggregator"
	"github.com/vietddude/dlqdiag/internal/diagnosis/classifier"
	"github.com/vietddude/dlqdiag/internal/diagnosis/normalizer"
	"github.com/vietddude/dlqdiag/internal/diagnosis/ranker"
	"github.com/vietddude/dlqdiag/internal/diagnosis/validator"
)

// minChunk keeps tiny batches on a single goroutine.
const minChunk = 64

type Config struct {
	Rules classifier.Rules
	// Workers bounds the normalize/classify fan-out. Values below 2 run
	// sequentially.
	Workers int
	// TopN bounds the entity and field statistics.
	TopN int
}

// DefaultConfig returns the reference rule table, sequential execution and
// the default top-N.
func DefaultConfig() Config {
	return Config{
		Rules:   classifier.DefaultRules(),
		Workers: 1,
		TopN:    aggregator.DefaultTopN,
	}
}

// Analysis is the result of one run.
type Analysis struct {
	Total       int                   `json:"total_errors"`
	Descriptors []*domain.Descriptor  `json:"-"`
	Statistics  aggregator.Statistics `json:"statistics"`
	Findings    []validator.Finding   `json:"findings"`
	RootCauses  []domain.RootCause    `json:"root_causes"`

	// Buckets holds the untruncated grouping for renderers that need it.
	Buckets *aggregator.Buckets `json:"-"`
}

// Uncategorized returns the number of records classified UNKNOWN.
func (a *Analysis) Uncategorized() int {
	if a.Buckets == nil {
		return 0
	}
	return len(a.Buckets.Category(domain.CategoryUnknown))
}

type Engine struct {
	cfg        Config
	classifier *classifier.Classifier
}

func New(cfg Config) (*Engine, error) {
	c, err := classifier.New(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	if cfg.TopN <= 0 {
		cfg.TopN = aggregator.DefaultTopN
	}
	return &Engine{cfg: cfg, classifier: c}, nil
}

// Run analyses records. Record order is significant: it drives every
// first-seen tie-break. The only error is ctx cancellation.
func (e *Engine) Run(ctx context.Context, records []domain.RawRecord, truth domain.GroundTruth) (*Analysis, error) {
	descs, err := e.classify(ctx, records)
	if err != nil {
		return nil, err
	}

	// Single owner merges in input order.
	b := aggregator.NewBuckets()
	for _, d := range descs {
		b.Add(d)
	}

	return &Analysis{
		Total:       b.Total(),
		Descriptors: descs,
		Statistics:  aggregator.Aggregate(b, e.cfg.TopN),
		Findings:    validator.Validate(b, truth),
		RootCauses:  ranker.Rank(b, b.Total()),
		Buckets:     b,
	}, nil
}

// Explain normalizes and classifies a single record and returns the tier
// breakdown behind its category.
func (e *Engine) Explain(rec domain.RawRecord) (*domain.Descriptor, classifier.Scores) {
	d := normalizer.Normalize(rec)
	scores := e.classifier.Score(d)
	e.classifier.Classify(d)
	return d, scores
}

func (e *Engine) classify(ctx context.Context, records []domain.RawRecord) ([]*domain.Descriptor, error) {
	descs := make([]*domain.Descriptor, len(records))

	workers := e.cfg.Workers
	if workers < 2 || len(records) <= minChunk {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			descs[i] = e.process(rec)
		}
		return descs, nil
	}

	chunk := (len(records) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				descs[i] = e.process(records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return descs, nil
}

func (e *Engine) process(rec domain.RawRecord) *domain.Descriptor {
	d := normalizer.Normalize(rec)
	e.classifier.Classify(d)
	return d
}
