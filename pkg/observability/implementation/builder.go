package implementation

import (
	"context"

	"github.com/edgevane/httpmetrics/pkg/observability"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	MetricsAddr    string
	OTLPEndpoint   string
	Development    bool
}

func NewObservability(cfg Config) (observability.Observability, error) {
	log, err := NewZapLogger(cfg.Development)
	if err != nil {
		return nil, err
	}

	meter := NewPrometheusMeter()

	tracer, shutdown, err := NewOtelTracer(
		context.Background(),
		cfg.ServiceName,
		cfg.OTLPEndpoint,
		cfg.ServiceVersion,
	)
	if err != nil {
		return nil, err
	}

	metricsAddr := cfg.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}

	return &observabilityImplementation{
		log:         log,
		meter:       meter,
		tracer:      tracer,
		metricsAddr: metricsAddr,
		traceClose:  shutdown,
	}, nil
}
