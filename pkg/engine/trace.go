package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for engine spans.
const defaultTracerName = "reconciler"

func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}

// startPassSpan opens the span covering one pass, from scheduling to its
// commit, abort or discard.
func (e *Engine) startPassSpan() {
	e.passCtx, e.passSpan = e.tracer.Start(
		context.Background(),
		"reconciler.pass",
		trace.WithAttributes(attribute.Int64("reconciler.epoch", int64(e.epoch))),
	)
}

func (e *Engine) endPassSpan(result string, err error) {
	if e.passSpan == nil {
		return
	}
	e.passSpan.SetAttributes(
		attribute.String("reconciler.result", result),
		attribute.Int("reconciler.units", e.units),
		attribute.Int("reconciler.quanta", e.quanta),
	)
	if err != nil {
		e.passSpan.RecordError(err)
		e.passSpan.SetStatus(codes.Error, err.Error())
	} else {
		e.passSpan.SetStatus(codes.Ok, "")
	}
	e.passSpan.End()
	e.passSpan = nil
	e.passCtx = nil
}

func (e *Engine) startCommitSpan() trace.Span {
	ctx := e.passCtx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := e.tracer.Start(ctx, "reconciler.commit",
		trace.WithAttributes(attribute.Int("reconciler.deletions", len(e.deletions))),
	)
	return span
}
