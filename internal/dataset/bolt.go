package dataset

import (
	"context"
	"fmt"

	"forest-predictor/internal/storage"
)

// ExampleLoader is the part of the example store a BoltSource reads from.
type ExampleLoader interface {
	LoadExamples() ([]storage.Example, error)
}

// BoltSource reads every example from the local example store.
type BoltSource struct {
	store ExampleLoader
}

func NewBoltSource(store ExampleLoader) *BoltSource {
	return &BoltSource{store: store}
}

func (s *BoltSource) Name() string { return "bolt" }

func (s *BoltSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	examples, err := s.store.LoadExamples()
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}
	return FromExamples(examples)
}
