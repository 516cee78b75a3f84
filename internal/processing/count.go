package processing

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

type CountRequests struct {
	counter *prometheus.CounterVec
	inner   pipeline.Processing[entity.PublicationRequest]
}

func NewCountRequests(p pipeline.Processing[entity.PublicationRequest], registry prometheus.Registerer, config pipeline.MetricsConfig) (pipeline.Processing[entity.PublicationRequest], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "requests_total",
		Help:      "Publication request counter by action.",
	}, []string{"action"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountRequests{
		counter: counter,
		inner:   p,
	}

	return ret, nil
}

func (p CountRequests) Process(ctx context.Context, request entity.PublicationRequest) error {
	defer p.counter.WithLabelValues(string(request.Action)).Inc()

	return p.inner.Process(ctx, request)
}
