package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ssv_multisig"

// Recorder exposes ceremony counters. A nil Recorder records nothing.
type Recorder struct {
	outcomes *prometheus.CounterVec
	tags     *prometheus.CounterVec
	active   *prometheus.GaugeVec
	messages *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ceremony_outcomes_total",
			Help:      "Terminated ceremonies by kind and result",
		}, []string{"kind", "result"}),
		tags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_tags_total",
			Help:      "Diagnostic events emitted by the ceremony engine",
		}, []string{"tag"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ceremonies_active",
			Help:      "Ceremonies currently held by the node",
		}, []string{"kind"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_messages_total",
			Help:      "Stage messages exchanged with peers",
		}, []string{"direction", "result"}),
	}
	for _, c := range []prometheus.Collector{r.outcomes, r.tags, r.active, r.messages} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Tag(tag string) {
	if r == nil {
		return
	}
	r.tags.WithLabelValues(tag).Inc()
}

func (r *Recorder) Outcome(kind string, success bool) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.outcomes.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) Active(kind string, n int) {
	if r == nil {
		return
	}
	r.active.WithLabelValues(kind).Set(float64(n))
}

// Message counts a stage message, direction is "in" or "out".
func (r *Recorder) Message(direction string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.messages.WithLabelValues(direction, result).Inc()
}
