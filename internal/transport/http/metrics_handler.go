package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus collectors registered by the
// metrics package.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
