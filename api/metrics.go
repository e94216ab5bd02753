package api

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
	tracerName      = "taskboard-api/api"
	listSpanName    = "taskboard.list_tasks"
	listEventName   = "list_tasks.request"
	listEventDomain = "taskboard"
	listRoute       = "/api/task/getAllTask"
)

// listRequestMetrics collects stage timings and outcome attributes for one
// list request and reports them as a span plus a structured log event.
type listRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	searchProvided bool
	statusFilter   string
	tasksReturned  int
	errorStage     string
}

func newListRequestMetrics(ctx context.Context, logger *log.Logger) (*listRequestMetrics, context.Context) {
	m := &listRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
	if ctx == nil {
		return m, nil
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, listSpanName)
	m.span = span
	return m, spanCtx
}

func (m *listRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *listRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *listRequestMetrics) SetSearchProvided(provided bool) {
	m.searchProvided = provided
}

func (m *listRequestMetrics) SetStatusFilter(filter string) {
	m.statusFilter = filter
}

func (m *listRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the span and emits one observability event for the request.
func (m *listRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	attrs := map[string]any{
		"http.route":                     listRoute,
		"http.status_code":               status,
		"taskboard.list.total_ms":        totalMs,
		"taskboard.list.search_provided": m.searchProvided,
		"taskboard.list.tasks_returned":  m.tasksReturned,
	}
	if m.statusFilter != "" {
		attrs["taskboard.list.status_filter"] = m.statusFilter
	}
	if m.fetchDuration > 0 {
		attrs["taskboard.list.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attrs["taskboard.list.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["taskboard.list.error_stage"] = m.errorStage
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", listRoute),
			attribute.Int("http.status_code", status),
			attribute.Float64("taskboard.list.total_ms", totalMs),
			attribute.Bool("taskboard.list.search_provided", m.searchProvided),
			attribute.Int("taskboard.list.tasks_returned", m.tasksReturned),
		)
		if m.statusFilter != "" {
			m.span.SetAttributes(attribute.String("taskboard.list.status_filter", m.statusFilter))
		}
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("taskboard.list.error_stage", m.errorStage))
		}
		m.span.AddEvent("observability.event", trace.WithAttributes(
			attribute.String("event.name", listEventName),
			attribute.String("event.domain", listEventDomain),
		))
		if err != nil || status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, m.errorStage)
			if err != nil {
				m.span.RecordError(err)
			}
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"event.name":      listEventName,
		"event.domain":    listEventDomain,
		"attributes":      attrs,
		"severity_text":   "INFO",
		"severity_number": 9,
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["severity_text"] = "ERROR"
		fields["severity_number"] = 17
	}
	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			fields["span_id"] = sc.SpanID().String()
		}
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
