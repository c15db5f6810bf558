package daemon

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

var (
	// Global flag to track if metrics are enabled
	metricsEnabled = false

	cycleDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_autoscaler_cycle_duration_seconds",
			Help: "Duration of the last control cycle in seconds",
		},
		[]string{"loop"},
	)

	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_autoscaler_cycles_total",
			Help: "Total number of control cycles completed",
		},
		[]string{"loop"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_autoscaler_errors_total",
			Help: "Total number of autoscaling errors by type",
		},
		[]string{"error_type"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_autoscaler_transitions_total",
			Help: "Total number of profile transitions by result",
		},
		[]string{"result"},
	)

	profileCost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_autoscaler_profile_hourly_cost",
		Help: "Hourly cost of the current resource profile",
	})

	profileCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_autoscaler_profile_capacity",
		Help: "Concurrent-user capacity of the current resource profile",
	})

	fleetUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_autoscaler_fleet_utilization",
			Help: "Latest fleet utilization by resource dimension",
		},
		[]string{"resource"},
	)

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_autoscaler_queue_depth",
		Help: "Latest request queue depth",
	})

	predictedInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_autoscaler_predicted_instances",
		Help: "Forecaster's latest instance estimate",
	})
)

// InitMetrics registers the Prometheus metrics.
func InitMetrics() {
	metricsEnabled = true

	prometheus.MustRegister(
		cycleDuration,
		cyclesTotal,
		errorsTotal,
		transitionsTotal,
		profileCost,
		profileCapacity,
		fleetUtilization,
		queueDepthGauge,
		predictedInstances,
	)
}

// GetMetricsHandler returns the Prometheus metrics handler.
func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}

// simpleMetricsReporter provides a no-op implementation when metrics are disabled.
type simpleMetricsReporter struct{}

func (r *simpleMetricsReporter) RecordCycleDuration(loop string, duration time.Duration) {}
func (r *simpleMetricsReporter) RecordCycleCompletion(loop string)                       {}
func (r *simpleMetricsReporter) RecordError(errorType string)                            {}
func (r *simpleMetricsReporter) RecordTransition(result string)                          {}
func (r *simpleMetricsReporter) RecordProfile(profile config.ResourceProfile)            {}
func (r *simpleMetricsReporter) RecordSnapshot(cpu, memory, gpuUtil float64, queueDepth int) {
}
func (r *simpleMetricsReporter) RecordPrediction(instances int) {}

// NewSimpleMetricsReporter creates a no-op metrics reporter.
func NewSimpleMetricsReporter() MetricsReporter {
	return &simpleMetricsReporter{}
}

// prometheusMetricsReporter implements MetricsReporter using Prometheus metrics.
type prometheusMetricsReporter struct{}

func (r *prometheusMetricsReporter) RecordCycleDuration(loop string, duration time.Duration) {
	if metricsEnabled {
		cycleDuration.WithLabelValues(loop).Set(duration.Seconds())
	}
}

func (r *prometheusMetricsReporter) RecordCycleCompletion(loop string) {
	if metricsEnabled {
		cyclesTotal.WithLabelValues(loop).Inc()
	}
}

func (r *prometheusMetricsReporter) RecordError(errorType string) {
	if metricsEnabled {
		errorsTotal.WithLabelValues(errorType).Inc()
	}
}

func (r *prometheusMetricsReporter) RecordTransition(result string) {
	if metricsEnabled {
		transitionsTotal.WithLabelValues(result).Inc()
	}
}

func (r *prometheusMetricsReporter) RecordProfile(profile config.ResourceProfile) {
	if metricsEnabled {
		profileCost.Set(profile.HourlyCost)
		profileCapacity.Set(float64(profile.MaxConcurrent))
	}
}

func (r *prometheusMetricsReporter) RecordSnapshot(cpu, memory, gpuUtil float64, queueDepth int) {
	if metricsEnabled {
		fleetUtilization.WithLabelValues("cpu").Set(cpu)
		fleetUtilization.WithLabelValues("memory").Set(memory)
		fleetUtilization.WithLabelValues("gpu").Set(gpuUtil)
		queueDepthGauge.Set(float64(queueDepth))
	}
}

func (r *prometheusMetricsReporter) RecordPrediction(instances int) {
	if metricsEnabled {
		predictedInstances.Set(float64(instances))
	}
}

// NewPrometheusMetricsReporter creates a Prometheus-backed metrics reporter.
func NewPrometheusMetricsReporter() MetricsReporter {
	return &prometheusMetricsReporter{}
}
