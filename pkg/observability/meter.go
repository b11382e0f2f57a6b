package observability

// Meter declares metrics against the backing registry. Label values are
// positional: every update must supply one value per label key declared
// in the MetricOpt, in the same order.
type Meter interface {
	Counter(name string, opts ...MetricOpt) Counter
	Histogram(name string, opts ...MetricOpt) Histogram
	Gauge(name string, opts ...MetricOpt) Gauge
}

type Counter interface {
	Inc(v float64, labelValues ...string)
}

type Histogram interface {
	Observe(v float64, labelValues ...string)
}

type Gauge interface {
	Set(v float64, labelValues ...string)
	Add(v float64, labelValues ...string)
}
