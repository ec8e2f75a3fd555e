// Package metrics exposes Prometheus counters for the decision loop and the
// liveness watchdog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenhouse_readings_processed_total",
		Help: "Telemetry messages that decoded into a valid reading.",
	})
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenhouse_decode_failures_total",
		Help: "Telemetry messages discarded as malformed or incomplete.",
	})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenhouse_store_errors_total",
		Help: "Reading persist attempts that failed.",
	})
	InferenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenhouse_inference_failures_total",
		Help: "Predictor calls that timed out, crashed or returned garbage.",
	})
	ActuatorCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_actuator_commands_total",
		Help: "Servo commands actually published, by command.",
	}, []string{"command"})
	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_alerts_sent_total",
		Help: "Alerts whose transmission was initiated, by class.",
	}, []string{"class"})
	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_alerts_suppressed_total",
		Help: "Alerts suppressed by a cooldown window, by class.",
	}, []string{"class"})
	DevicesOffline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenhouse_devices_offline",
		Help: "Greenhouses currently considered offline by the watchdog.",
	})
)
