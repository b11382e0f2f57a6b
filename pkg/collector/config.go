package collector

import (
	"github.com/edgevane/httpmetrics/pkg/lifecycle"
)

// LabelExtension resolves label names the built-in resolver does not
// recognize. Implementations must be pure and safe for concurrent use.
type LabelExtension interface {
	LabelValue(name string, ev *lifecycle.Event) string
}

// Config holds the label schemas, histogram buckets and optional label
// extension. It is immutable once built; accessors return copies so a
// caller cannot alter the schemas after first use.
type Config struct {
	earlyErrorLabels []string
	requestLabels    []string
	errorLabels      []string
	buckets          []float64
	extension        LabelExtension
}

type Option func(*Config)

// WithEarlyErrorLabels replaces the early-error schema wholesale.
func WithEarlyErrorLabels(names ...string) Option {
	return func(c *Config) {
		c.earlyErrorLabels = append([]string(nil), names...)
	}
}

// WithRequestLabels replaces the request schema wholesale.
func WithRequestLabels(names ...string) Option {
	return func(c *Config) {
		c.requestLabels = append([]string(nil), names...)
	}
}

// WithErrorLabels replaces the error schema wholesale.
func WithErrorLabels(names ...string) Option {
	return func(c *Config) {
		c.errorLabels = append([]string(nil), names...)
	}
}

// WithBuckets replaces the duration-bucket upper bounds wholesale.
func WithBuckets(bounds ...float64) Option {
	return func(c *Config) {
		c.buckets = append([]float64(nil), bounds...)
	}
}

// WithExtension installs the fallback resolver for unrecognized label
// names. Without one, unknown names resolve to AbsentValue.
func WithExtension(ext LabelExtension) Option {
	return func(c *Config) {
		c.extension = ext
	}
}

// NewConfig builds a Config from the built-in defaults plus any
// operator overrides.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		earlyErrorLabels: nil,
		requestLabels:    []string{"method", "reason", "status_class"},
		errorLabels:      []string{"method", "reason", "error"},
		buckets:          DefaultBuckets(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBuckets returns the built-in duration-bucket bounds, seconds.
func DefaultBuckets() []float64 {
	return []float64{0.01, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 4}
}

func (c *Config) EarlyErrorLabels() []string {
	return append([]string(nil), c.earlyErrorLabels...)
}

func (c *Config) RequestLabels() []string {
	return append([]string(nil), c.requestLabels...)
}

func (c *Config) ErrorLabels() []string {
	return append([]string(nil), c.errorLabels...)
}

func (c *Config) Buckets() []float64 {
	return append([]float64(nil), c.buckets...)
}

func (c *Config) Extension() LabelExtension {
	return c.extension
}
