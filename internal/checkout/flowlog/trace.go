package flowlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	// TraceID is the W3C trace ID (32 lowercase hex chars).
	// Empty string if no active span is found in the context.
	TraceID string

	// SpanID is the W3C span ID (16 lowercase hex chars).
	SpanID string
}

// ExtractTraceInfo reads the active OpenTelemetry span from ctx and returns
// its trace_id and span_id as hex strings. If the context carries no active
// span (e.g. in unit tests), both fields are empty strings.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds a flow log entry with the trace info automatically
// extracted from ctx.
//
// Usage in the flow:
//
//	entry := flowlog.NewEntry(ctx, draftID, flowlog.StatusStepDone, "SelectAddress", "")
//	_ = repo.Save(ctx, entry)
func NewEntry(ctx context.Context, draftID string, status Status, step, detail string) *Entry {
	ti := ExtractTraceInfo(ctx)
	return &Entry{
		DraftID:   draftID,
		Status:    status,
		Step:      step,
		Detail:    detail,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		UpdatedAt: time.Now().UTC(),
	}
}
