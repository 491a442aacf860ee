// Package metrics wires a Node's internal counters into Prometheus.
// The node core stays instrumentation-agnostic: it only ever talks to
// the small Recorder interface, never to Prometheus directly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder observes a Node's internal state transitions. All methods
// must be cheap and non-blocking; the node core calls them
// synchronously from its single-threaded event loop.
type Recorder interface {
	// ProtocolMessageReceived is called for each accepted protocol
	// message, tagged by kind ("gossip", "ihave", "graft", "prune").
	ProtocolMessageReceived(kind string)

	// ActionEmitted is called once for each action PollAction hands to
	// the embedder, tagged by kind ("send", "deliver").
	ActionEmitted(kind string)

	// TrackerDepth reports the current waiting_messages count.
	TrackerDepth(n int)

	// PeerCounts reports the current eager/lazy set sizes.
	PeerCounts(eager, lazy int)
}

// NopRecorder discards everything. It is the default when an embedder
// doesn't ask for metrics.
type NopRecorder struct{}

func (NopRecorder) ProtocolMessageReceived(kind string) {}
func (NopRecorder) ActionEmitted(kind string)            {}
func (NopRecorder) TrackerDepth(n int)                   {}
func (NopRecorder) PeerCounts(eager, lazy int)           {}

// PrometheusRecorder is a Recorder whose collectors are registered on
// the Registerer it is given, each carrying a constant "node" label so
// multiple Nodes in one process can register their own instances.
type PrometheusRecorder struct {
	messagesReceived *prometheus.CounterVec
	actionsEmitted   *prometheus.CounterVec
	trackerDepth     prometheus.Gauge
	eagerPeers       prometheus.Gauge
	lazyPeers        prometheus.Gauge
}

// NewPrometheusRecorder creates and registers the node's collectors
// against reg, labeling every series with node. Panics if registration
// fails (mirrors the common MustRegister idiom), since a mis-wired
// metrics setup should fail fast at startup rather than silently drop
// data.
func NewPrometheusRecorder(reg prometheus.Registerer, node string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plumtree",
			Name:      "protocol_messages_received_total",
			Help:      "Protocol messages accepted by the node, by kind.",
			ConstLabels: prometheus.Labels{
				"node": node,
			},
		}, []string{"kind"}),
		actionsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plumtree",
			Name:      "actions_emitted_total",
			Help:      "Outbound actions emitted by the node via PollAction, by kind.",
			ConstLabels: prometheus.Labels{
				"node": node,
			},
		}, []string{"kind"}),
		trackerDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plumtree",
			Name:      "missing_tracker_depth",
			Help:      "Number of distinct message ids currently tracked as missing.",
			ConstLabels: prometheus.Labels{
				"node": node,
			},
		}),
		eagerPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plumtree",
			Name:      "eager_push_peers",
			Help:      "Current size of the eager-push peer set.",
			ConstLabels: prometheus.Labels{
				"node": node,
			},
		}),
		lazyPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plumtree",
			Name:      "lazy_push_peers",
			Help:      "Current size of the lazy-push peer set.",
			ConstLabels: prometheus.Labels{
				"node": node,
			},
		}),
	}
	reg.MustRegister(r.messagesReceived, r.actionsEmitted, r.trackerDepth, r.eagerPeers, r.lazyPeers)
	return r
}

func (r *PrometheusRecorder) ProtocolMessageReceived(kind string) {
	r.messagesReceived.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) ActionEmitted(kind string) {
	r.actionsEmitted.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) TrackerDepth(n int) {
	r.trackerDepth.Set(float64(n))
}

func (r *PrometheusRecorder) PeerCounts(eager, lazy int) {
	r.eagerPeers.Set(float64(eager))
	r.lazyPeers.Set(float64(lazy))
}
