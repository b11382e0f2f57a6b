package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	bwmarrin "github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgevane/httpmetrics/internal/listener"
	"github.com/edgevane/httpmetrics/pkg/collector"
	"github.com/edgevane/httpmetrics/pkg/observability"
)

// --- mocks ---

type metricCall struct {
	value  float64
	labels []string
}

type recCounter struct {
	mu    sync.Mutex
	calls []metricCall
}

func (c *recCounter) Inc(v float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricCall{value: v, labels: append([]string(nil), labelValues...)})
}

type recHistogram struct {
	mu    sync.Mutex
	calls []metricCall
}

func (h *recHistogram) Observe(v float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, metricCall{value: v, labels: append([]string(nil), labelValues...)})
}

type recGauge struct {
	mu  sync.Mutex
	val float64
}

func (g *recGauge) Set(v float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.val = v
}

func (g *recGauge) Add(v float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.val += v
}

type recMeter struct {
	counters   map[string]*recCounter
	histograms map[string]*recHistogram
	gauges     map[string]*recGauge
}

func newRecMeter() *recMeter {
	return &recMeter{
		counters:   make(map[string]*recCounter),
		histograms: make(map[string]*recHistogram),
		gauges:     make(map[string]*recGauge),
	}
}

func (m *recMeter) Counter(name string, opts ...observability.MetricOpt) observability.Counter {
	c := &recCounter{}
	m.counters[name] = c
	return c
}

func (m *recMeter) Histogram(name string, opts ...observability.MetricOpt) observability.Histogram {
	h := &recHistogram{}
	m.histograms[name] = h
	return h
}

func (m *recMeter) Gauge(name string, opts ...observability.MetricOpt) observability.Gauge {
	g := &recGauge{}
	m.gauges[name] = g
	return g
}

type quietLogger struct{}

func (quietLogger) Debug(msg string, fields ...observability.Field)         {}
func (quietLogger) Info(msg string, fields ...observability.Field)          {}
func (quietLogger) Warn(msg string, fields ...observability.Field)          {}
func (quietLogger) Error(msg string, fields ...observability.Field)         {}
func (quietLogger) Fatal(msg string, fields ...observability.Field)         {}
func (quietLogger) With(fields ...observability.Field) observability.Logger { return quietLogger{} }

// --- helpers ---

func newTestMiddleware(t *testing.T) (*Metrics, *recMeter) {
	t.Helper()

	meter := newRecMeter()
	reg := listener.NewRegistry()
	reg.RegisterAddr("http", "127.0.0.1", 8080)

	col := collector.New(meter, reg, collector.NewConfig(), quietLogger{}, nil)

	node, err := bwmarrin.NewNode(0)
	require.NoError(t, err)

	m := NewMetrics(col, meter, quietLogger{}, nil, node, "http")

	// Deterministic clock: each reading advances by 0.25s.
	var tick float64
	m.now = func() float64 {
		tick += 0.25
		return tick
	}
	return m, meter
}

// --- tests ---

func TestHandler_NormalRequest(t *testing.T) {
	m, meter := newTestMiddleware(t)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	reqCalls := meter.counters["requests_total"].calls
	require.Len(t, reqCalls, 1)
	assert.Equal(t, []string{"GET", "normal", "2XX"}, reqCalls[0].labels)

	durCalls := meter.histograms["request_duration_seconds"].calls
	require.Len(t, durCalls, 1)
	assert.Greater(t, durCalls[0].value, 0.0)

	assert.Empty(t, meter.counters["errors_total"].calls)
	assert.Equal(t, 0.0, meter.gauges["inflight_requests"].val)
}

func TestHandler_ImplicitStatus(t *testing.T) {
	m, meter := newTestMiddleware(t)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implied 200"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	reqCalls := meter.counters["requests_total"].calls
	require.Len(t, reqCalls, 1)
	assert.Equal(t, []string{"POST", "normal", "2XX"}, reqCalls[0].labels)
}

func TestHandler_BodyDuration(t *testing.T) {
	t.Run("observed when the body is drained", func(t *testing.T) {
		m, meter := newTestMiddleware(t)

		h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 64)
			for {
				if _, err := r.Body.Read(buf); err != nil {
					break
				}
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader("payload")))

		assert.Len(t, meter.histograms["receive_body_duration_seconds"].calls, 1)
	})

	t.Run("skipped when the body is never drained", func(t *testing.T) {
		m, meter := newTestMiddleware(t)

		h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader("payload")))

		assert.Empty(t, meter.histograms["receive_body_duration_seconds"].calls)
	})
}

func TestHandler_Panic(t *testing.T) {
	m, meter := newTestMiddleware(t)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	errCalls := meter.counters["errors_total"].calls
	require.Len(t, errCalls, 1)
	assert.Equal(t, []string{"GET", "panic", "boom"}, errCalls[0].labels)

	// The request still counts as completed.
	assert.Len(t, meter.counters["requests_total"].calls, 1)
	assert.Equal(t, 0.0, meter.gauges["inflight_requests"].val)
}

func TestHandler_TrackSpawn(t *testing.T) {
	m, meter := newTestMiddleware(t)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		TrackSpawn(r.Context(), "job-a")
		TrackSpawn(r.Context(), "job-b")
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	procCalls := meter.counters["spawned_processes_total"].calls
	require.Len(t, procCalls, 1)
	assert.Equal(t, 2.0, procCalls[0].value)
}

func TestRecordEarlyFailure(t *testing.T) {
	m, meter := newTestMiddleware(t)

	m.RecordEarlyFailure()

	calls := meter.counters["early_errors_total"].calls
	require.Len(t, calls, 1)
	assert.Equal(t, 1.0, calls[0].value)
}

func TestServerErrorLog(t *testing.T) {
	m, meter := newTestMiddleware(t)

	logger := ServerErrorLog(m)
	logger.Printf("http: TLS handshake error from 10.0.0.9: EOF")

	assert.Len(t, meter.counters["early_errors_total"].calls, 1)
}
