package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttachTracingMetadata stamps the chi request ID onto the active span, so a
// trace can be joined with the request ID the access log carries. Must run
// after middleware.RequestID and inside the otelhttp handler that opens the
// span; with no active span it is a no-op.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.String("request_id", requestID),
			)
		}
		next.ServeHTTP(w, r)
	})
}
