package infrastructure

import (
	"context"
	"fmt"

	"gaexport/internal/domain"
)

// SinkRouter dispatches a write to the sink registered for the destination scheme.
type SinkRouter struct {
	sinks map[string]domain.ResultSink
}

func NewSinkRouter() *SinkRouter {
	return &SinkRouter{sinks: make(map[string]domain.ResultSink)}
}

// Register binds scheme to sink, replacing any earlier binding.
func (r *SinkRouter) Register(scheme string, sink domain.ResultSink) *SinkRouter {
	r.sinks[scheme] = sink
	return r
}

func (r *SinkRouter) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	sink, ok := r.sinks[dest.Scheme]
	if !ok {
		return fmt.Errorf("%w: no sink for scheme %q", domain.ErrUnsupportedDestination, dest.Scheme)
	}
	return sink.Put(ctx, dest, data, contentType)
}
