package voicecmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for CommandsTotal.
const (
	statusSpoken  = "spoken"
	statusFailed  = "failed"
	statusIgnored = "ignored"
)

// Metrics holds the dispatcher's Prometheus collectors.
type Metrics struct {
	// CommandsTotal counts handled ASR results by option and outcome.
	CommandsTotal *prometheus.CounterVec

	// TTSLatency observes how long the TTS call took to be accepted.
	TTSLatency prometheus.Histogram
}

// NewMetrics registers the dispatcher collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "g1audio",
			Name:      "voice_commands_total",
			Help:      "Recognized speech results handled, by matched option and outcome.",
		}, []string{"option", "status"}),

		TTSLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "g1audio",
			Name:      "tts_request_seconds",
			Help:      "Time for the voice service to accept a TTS request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
