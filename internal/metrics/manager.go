// Package metrics exposes Prometheus counters and gauges for the frame loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "squat_coach"
	Subsystem = "tracker"
)

// Frame results.
const (
	FrameProcessed = "processed"
	FrameSkipped   = "skipped"
	FrameStale     = "stale"
	FrameDropped   = "dropped"
)

type Manager struct {
	// counters
	CounterFrames   *prometheus.CounterVec
	CounterReps     *prometheus.CounterVec
	CounterFaults   *prometheus.CounterVec
	CounterSessions *prometheus.CounterVec

	// gauges
	GaugeCorrect       prometheus.Gauge
	GaugeIncorrect     prometheus.Gauge
	GaugeMQTTConnected prometheus.Gauge

	// histograms
	HistFrameDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager(Namespace, "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(Namespace, "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "Keypoint frames received, by result",
	}, []string{"result"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps_total",
		Help:      "Scored reps, by event",
	}, []string{"event"})
	counterFaults := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "faults_total",
		Help:      "Form faults raised on frames, by kind",
	}, []string{"fault"})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_total",
		Help:      "Ended sessions, by outcome",
	}, []string{"outcome"})

	gaugeCorrect := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_correct",
		Help:      "Correct reps in the current session",
	})
	gaugeIncorrect := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_incorrect",
		Help:      "Incorrect reps in the current session",
	})
	gaugeMQTT := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "mqtt_connected",
		Help:      "1 while the broker connection is open",
	})

	histFrameDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets: []float64{
			0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
			0.0005, 0.001, 0.005, 0.01, 0.05,
		},
		Name: "frame_duration_seconds",
		Help: "Time spent processing one frame in seconds",
	})

	return &Manager{
		CounterFrames:      counterFrames,
		CounterReps:        counterReps,
		CounterFaults:      counterFaults,
		CounterSessions:    counterSessions,
		GaugeCorrect:       gaugeCorrect,
		GaugeIncorrect:     gaugeIncorrect,
		GaugeMQTTConnected: gaugeMQTT,
		HistFrameDuration:  histFrameDuration,
	}
}

// Frame counts one received frame.
func (m *Manager) Frame(result string) {
	m.CounterFrames.WithLabelValues(result).Inc()
}

// SetCounts publishes the current session totals.
func (m *Manager) SetCounts(correct, incorrect int) {
	m.GaugeCorrect.Set(float64(correct))
	m.GaugeIncorrect.Set(float64(incorrect))
}

// SetConnected records the broker connection state.
func (m *Manager) SetConnected(connected bool) {
	if connected {
		m.GaugeMQTTConnected.Set(1)
		return
	}
	m.GaugeMQTTConnected.Set(0)
}
