package recorder

import "PriceSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunSnapshot) error                       { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]model.RunInfo, error)            { return nil, nil }
func (n *NoopRecorder) ProductHistory(_ string, _ int) ([]PricePoint, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
