package observability

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "finitefield.org/geostudio-web/internal/observability"

var propagator = propagation.TraceContext{}

// Trace starts a server span per request, continuing a W3C traceparent when
// one is present, and tags the request logger with the trace id.
func Trace() func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				ctx = WithLogger(ctx, FromContext(ctx).With(zap.String("trace_id", sc.TraceID().String())))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SpanEvent records name with attrs on the request's current span.
func SpanEvent(r *http.Request, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(r.Context()).AddEvent(name, trace.WithAttributes(attrs...))
}
