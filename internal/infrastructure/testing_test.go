package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"

	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func discardLogger() *logger.Logger {
	return logger.Discard()
}
