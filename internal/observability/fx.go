package observability

import (
	"github.com/invoicemonk/invoicemonk/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module wires prometheus instruments on the default registry.
var Module = fx.Module("observability",
	fx.Provide(func() *metrics.Metrics {
		return metrics.New(prometheus.DefaultRegisterer)
	}),
)
