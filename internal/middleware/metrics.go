// Package middleware produces request-lifecycle events from live HTTP
// traffic and hands them to the metrics collector. It is passive: it
// never alters request flow beyond recovering panics into a 500.
package middleware

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	bwmarrin "github.com/bwmarrin/snowflake"

	"github.com/edgevane/httpmetrics/pkg/collector"
	"github.com/edgevane/httpmetrics/pkg/lifecycle"
	"github.com/edgevane/httpmetrics/pkg/observability"
)

type Metrics struct {
	collector   *collector.Collector
	log         observability.Logger
	tracer      observability.Tracer
	node        *bwmarrin.Node
	listenerRef string

	inflight observability.Gauge

	// Overridable in tests.
	now func() float64
}

// NewMetrics builds the instrumentation middleware for one listener.
// The tracer may be nil when tracing is not wired.
func NewMetrics(
	col *collector.Collector,
	meter observability.Meter,
	log observability.Logger,
	tracer observability.Tracer,
	node *bwmarrin.Node,
	listenerRef string,
) *Metrics {
	return &Metrics{
		collector:   col,
		log:         log,
		tracer:      tracer,
		node:        node,
		listenerRef: listenerRef,
		inflight: meter.Gauge("inflight_requests", observability.MetricOpt{
			Help: "Number of requests currently being served",
		}),
		now: wallSeconds,
	}
}

// Handler wraps next with lifecycle observation.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := m.node.Generate().Int64()

		ctx := r.Context()
		var span observability.Span
		if m.tracer != nil {
			ctx, span = m.tracer.Start(ctx, "http.request")
			defer span.End()
		}

		tracker := &spawnTracker{}
		ctx = context.WithValue(ctx, spawnTrackerKey{}, tracker)
		r = r.WithContext(ctx)

		m.inflight.Add(1)
		defer m.inflight.Add(-1)

		start := m.now()
		body := &bodyTimer{rc: r.Body, now: m.now}
		r.Body = body

		sw := &statusWriter{ResponseWriter: w}

		ev := &lifecycle.Event{
			Kind:        lifecycle.KindCompletedRequest,
			ListenerRef: m.listenerRef,
			ReqStart:    start,
			BodyStart:   start,
			Request:     httpRequest{r: r},
		}

		defer func() {
			rec := recover()
			if rec != nil {
				if !sw.wrote {
					http.Error(sw, "internal server error", http.StatusInternalServerError)
				}
				ev.Reason = lifecycle.Compound(
					"panic",
					&lifecycle.Cause{Tag: fmt.Sprintf("%v", rec)},
					string(debug.Stack()),
				)
				m.log.Error("panic recovered",
					observability.String("panic", fmt.Sprintf("%v", rec)),
					observability.Int64("request_id", reqID),
				)
				if span != nil {
					span.RecordError(fmt.Errorf("panic: %v", rec))
				}
			} else if sw.status == http.StatusSwitchingProtocols {
				ev.Reason = lifecycle.Simple(lifecycle.TagSwitchProtocol)
			} else {
				ev.Reason = lifecycle.Simple(lifecycle.TagNormal)
			}

			ev.ReqEnd = m.now()
			ev.BodyEnd = body.end()
			ev.Status = sw.status
			ev.Procs = tracker.ids()

			if err := m.collector.Observe(ev); err != nil {
				m.log.Error("observe request event",
					observability.Err(err),
					observability.Int64("request_id", reqID),
				)
			}
		}()

		next.ServeHTTP(sw, r)
	})
}

// RecordEarlyFailure counts a request that died before reaching the
// handler chain.
func (m *Metrics) RecordEarlyFailure() {
	if err := m.collector.Observe(lifecycle.EarlyFailure(m.listenerRef)); err != nil {
		m.log.Error("observe early failure", observability.Err(err))
	}
}

// ServerErrorLog adapts RecordEarlyFailure into a *log.Logger suitable
// for http.Server.ErrorLog: every line the server reports (accept
// errors, TLS handshake failures, ...) counts as one early failure.
func ServerErrorLog(m *Metrics) *stdlog.Logger {
	return stdlog.New(earlyFailureWriter{m: m}, "", 0)
}

type earlyFailureWriter struct {
	m *Metrics
}

func (w earlyFailureWriter) Write(p []byte) (int, error) {
	w.m.log.Warn("server error", observability.String("detail", string(p)))
	w.m.RecordEarlyFailure()
	return len(p), nil
}

// TrackSpawn records one unit of background work launched on behalf of
// the current request; its count feeds spawned_processes_total.
func TrackSpawn(ctx context.Context, id string) {
	if t, ok := ctx.Value(spawnTrackerKey{}).(*spawnTracker); ok {
		t.add(id)
	}
}

type spawnTrackerKey struct{}

type spawnTracker struct {
	mu  sync.Mutex
	got []string
}

func (t *spawnTracker) add(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.got = append(t.got, id)
}

func (t *spawnTracker) ids() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.got...)
}

type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Method() string { return h.r.Method }

// statusWriter captures the response status. A handler that writes a
// body without WriteHeader implies 200.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wrote {
		w.status = status
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// bodyTimer stamps the moment the request body is fully received. A
// body never read to EOF leaves the stamp unset, and the body-duration
// observation is skipped.
type bodyTimer struct {
	rc  io.ReadCloser
	now func() float64

	mu   sync.Mutex
	done bool
	at   float64
}

func (b *bodyTimer) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err == io.EOF {
		b.mu.Lock()
		if !b.done {
			b.done = true
			b.at = b.now()
		}
		b.mu.Unlock()
	}
	return n, err
}

func (b *bodyTimer) Close() error { return b.rc.Close() }

func (b *bodyTimer) end() *float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.done {
		return nil
	}
	at := b.at
	return &at
}

func wallSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
