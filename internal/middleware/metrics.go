package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StorageErrors counts key-value store errors by Redis command name.
var StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "conecta_storage_errors_total",
	Help: "Total number of key-value store errors by operation type",
}, []string{"operation"})

// EventsEmitted counts bus events published, by event name.
var EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "conecta_events_emitted_total",
	Help: "Total number of bus events emitted by event name",
}, []string{"event"})

// ActiveWebSockets tracks currently open event-stream connections.
var ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "conecta_active_websockets",
	Help: "Number of active WebSocket event-stream connections",
})

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wraps the fiberprometheus middleware as a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
