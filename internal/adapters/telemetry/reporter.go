package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/knot/internal/core/ports"
)

// PhaseReporter is an sdktrace.SpanProcessor that logs the duration of every
// finished span. Failed spans are logged as warnings.
type PhaseReporter struct {
	log ports.Logger
}

// NewPhaseReporter returns a PhaseReporter writing to log.
func NewPhaseReporter(log ports.Logger) *PhaseReporter {
	return &PhaseReporter{log: log}
}

// OnStart does nothing.
func (r *PhaseReporter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span's name and duration.
func (r *PhaseReporter) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsValid() {
		return
	}

	took := s.EndTime().Sub(s.StartTime()).Round(time.Microsecond)
	if s.Status().Code == codes.Error {
		r.log.Warn(fmt.Sprintf("phase %s failed after %s: %s", s.Name(), took, s.Status().Description))
		return
	}
	r.log.Info(fmt.Sprintf("phase %s took %s", s.Name(), took))
}

// ForceFlush does nothing.
func (r *PhaseReporter) ForceFlush(context.Context) error {
	return nil
}

// Shutdown does nothing.
func (r *PhaseReporter) Shutdown(context.Context) error {
	return nil
}

// InstallReporter makes the global tracer provider report phases through log.
// The returned function shuts the provider down.
func InstallReporter(log ports.Logger) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewPhaseReporter(log)))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
