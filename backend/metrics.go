package backend

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "teamlink/backend"
	requestSpanName  = "backend.request"
	requestEventName = "backend.request"
)

type requestMetrics struct {
	logger    *log.Logger
	span      trace.Span
	start     time.Time
	method    string
	route     string
	requestID string
	attempts  int
	refreshed bool
	bytesIn   int
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route, requestID string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.String("teamlink.request_id", requestID),
		),
	)
	return &requestMetrics{
		logger:    logger,
		span:      span,
		start:     time.Now(),
		method:    method,
		route:     route,
		requestID: requestID,
	}, ctx
}

func (m *requestMetrics) ObserveAttempt() {
	m.attempts++
}

func (m *requestMetrics) SetRefreshed() {
	m.refreshed = true
}

func (m *requestMetrics) SetBytesIn(n int) {
	if n < 0 {
		n = 0
	}
	m.bytesIn = n
}

// Log ends the span and writes one log entry for the request.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := durationToMillis(time.Since(m.start))
	level := severityForStatus(status, err)

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("teamlink.attempts", m.attempts),
			attribute.Bool("teamlink.token_refreshed", m.refreshed),
			attribute.Float64("teamlink.total_ms", total),
		)
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"method":     m.method,
		"route":      m.route,
		"status":     status,
		"request_id": m.requestID,
		"attempts":   m.attempts,
		"total_ms":   total,
		"bytes_in":   m.bytesIn,
	}
	if m.refreshed {
		fields["token_refreshed"] = true
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	m.logger.WithFields(fields).Log(level, requestEventName)
}

func severityForStatus(status int, err error) log.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return log.ErrorLevel
	case status >= http.StatusBadRequest:
		return log.WarnLevel
	case err != nil:
		return log.ErrorLevel
	default:
		return log.DebugLevel
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
