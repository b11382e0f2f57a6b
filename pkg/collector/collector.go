// Package collector turns request-lifecycle events into a fixed set of
// counters and histograms. It holds no mutable state of its own: all
// configuration is frozen at construction and every Observe call is an
// independent, synchronous unit of work.
package collector

import (
	"fmt"

	"github.com/edgevane/httpmetrics/pkg/apperror"
	"github.com/edgevane/httpmetrics/pkg/lifecycle"
	"github.com/edgevane/httpmetrics/pkg/observability"
)

// AddressLookup resolves a listener ref to its bound host and port.
type AddressLookup interface {
	GetAddress(ref string) (host string, port int, err error)
}

// Collector classifies events and emits the matching metric updates.
// Safe for concurrent use; concurrency of the underlying metrics is
// the meter's contract.
type Collector struct {
	resolver *Resolver
	addrs    AddressLookup
	log      observability.Logger

	earlyErrorLabels []string
	requestLabels    []string
	errorLabels      []string

	earlyErrors  observability.Counter
	requests     observability.Counter
	spawnedProcs observability.Counter
	errors       observability.Counter
	reqDuration  observability.Histogram
	bodyDuration observability.Histogram
}

// New declares the six metrics against the meter and returns a ready
// collector. Declaring twice against the same meter with different
// schemas is the caller's bug; the meter is free to panic on it.
func New(
	meter observability.Meter,
	addrs AddressLookup,
	cfg *Config,
	log observability.Logger,
	classifier StatusClassifier,
) *Collector {
	c := &Collector{
		resolver:         NewResolver(cfg, classifier),
		addrs:            addrs,
		log:              log,
		earlyErrorLabels: cfg.EarlyErrorLabels(),
		requestLabels:    cfg.RequestLabels(),
		errorLabels:      cfg.ErrorLabels(),
	}

	c.earlyErrors = meter.Counter("early_errors_total", observability.MetricOpt{
		Help:      "Total number of requests that failed before processing began",
		LabelKeys: c.earlyErrorLabels,
	})
	c.requests = meter.Counter("requests_total", observability.MetricOpt{
		Help:      "Total number of completed requests",
		LabelKeys: c.requestLabels,
	})
	c.spawnedProcs = meter.Counter("spawned_processes_total", observability.MetricOpt{
		Help:      "Total number of work units spawned while serving requests",
		LabelKeys: c.requestLabels,
	})
	c.errors = meter.Counter("errors_total", observability.MetricOpt{
		Help:      "Total number of requests terminated by an error",
		LabelKeys: c.errorLabels,
	})
	c.reqDuration = meter.Histogram("request_duration_seconds", observability.MetricOpt{
		Help:      "Time between request start and end",
		Buckets:   cfg.Buckets(),
		LabelKeys: c.requestLabels,
		Unit:      "seconds",
	})
	c.bodyDuration = meter.Histogram("receive_body_duration_seconds", observability.MetricOpt{
		Help:      "Time spent receiving the request body",
		Buckets:   cfg.Buckets(),
		LabelKeys: c.requestLabels,
		Unit:      "seconds",
	})

	log.Debug("lifecycle metrics declared",
		observability.Int("early_error_labels", len(c.earlyErrorLabels)),
		observability.Int("request_labels", len(c.requestLabels)),
		observability.Int("error_labels", len(c.errorLabels)),
	)

	return c
}

// Observe classifies one event and emits its metric updates. The input
// record is never mutated; the only error paths are contract
// violations by the producer.
func (c *Collector) Observe(ev *lifecycle.Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", apperror.ErrMalformedEvent)
	}

	host, port, err := c.addrs.GetAddress(ev.ListenerRef)
	if err != nil {
		return fmt.Errorf("resolve listener %q: %w", ev.ListenerRef, err)
	}

	// Enrichment happens on a shallow copy so the producer's record
	// stays untouched.
	enriched := *ev
	enriched.ListenerHost = host
	enriched.ListenerPort = port

	switch enriched.Kind {
	case lifecycle.KindEarlyFailure:
		return c.observeEarlyFailure(&enriched)
	case lifecycle.KindCompletedRequest:
		return c.observeCompleted(&enriched)
	default:
		return fmt.Errorf("%w: kind %d", apperror.ErrMalformedEvent, enriched.Kind)
	}
}

func (c *Collector) observeEarlyFailure(ev *lifecycle.Event) error {
	vec, err := c.resolver.Vector(c.earlyErrorLabels, ev)
	if err != nil {
		return err
	}
	c.earlyErrors.Inc(1, vec...)
	return nil
}

func (c *Collector) observeCompleted(ev *lifecycle.Event) error {
	if ev.Reason.Tag == "" {
		return fmt.Errorf("%w: completed request without a reason", apperror.ErrContractViolation)
	}

	vec, err := c.resolver.Vector(c.requestLabels, ev)
	if err != nil {
		return err
	}

	c.requests.Inc(1, vec...)
	c.spawnedProcs.Inc(float64(len(ev.Procs)), vec...)

	// Clock skew can make this negative; it is recorded as-is.
	c.reqDuration.Observe(ev.ReqEnd-ev.ReqStart, vec...)

	if ev.BodyEnd != nil {
		c.bodyDuration.Observe(*ev.BodyEnd-ev.BodyStart, vec...)
	}

	if ev.Reason.Terminated() {
		return nil
	}

	errVec, err := c.resolver.Vector(c.errorLabels, ev)
	if err != nil {
		return err
	}
	c.errors.Inc(1, errVec...)
	return nil
}
