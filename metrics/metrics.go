// Package metrics exposes the packet I/O engine and AT broker as an
// optional set of Prometheus collectors. A nil *Collector disables
// instrumentation entirely — every Collector method nil-checks its
// receiver before touching a metric, so metrics never cost more than a
// pointer comparison when the caller opts out.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles the counters and histograms the driver core emits.
// It does not itself implement prometheus.Collector; NewCollector registers
// each member counter/histogram with the supplied prometheus.Registerer
// individually, the way go-tcpinfo registers its own socket counters.
type Collector struct {
	commandsSent      prometheus.Counter
	commandsCompleted *prometheus.CounterVec
	urcsDispatched    *prometheus.CounterVec
	linesUndefined    prometheus.Counter
	commandDuration   prometheus.Histogram
	registrationEvents *prometheus.CounterVec
}

// NewCollector builds a Collector with the given namespace (e.g.
// "cellular") and registers it with reg. If reg is nil the metrics are
// created but never registered, which is useful in tests that want to
// exercise the instrumented code paths without a global registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		commandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "atbroker",
			Name:      "commands_sent_total",
			Help:      "AT commands written to the transport.",
		}),
		commandsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "atbroker",
			Name:      "commands_completed_total",
			Help:      "AT commands completed, labeled by final status.",
		}, []string{"status"}),
		urcsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pktio",
			Name:      "urcs_dispatched_total",
			Help:      "Unsolicited result codes dispatched, labeled by prefix.",
		}, []string{"prefix"}),
		linesUndefined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pktio",
			Name:      "lines_undefined_total",
			Help:      "Lines that matched neither a solicited response nor a known URC.",
		}),
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "atbroker",
			Name:      "command_duration_seconds",
			Help:      "Round-trip time from command write to terminator.",
			Buckets:   prometheus.DefBuckets,
		}),
		registrationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reg",
			Name:      "state_changes_total",
			Help:      "Registration state changes, labeled by domain (cs/ps) and state (denied if either domain is denied, else changed).",
		}, []string{"domain", "state"}),
	}
	if reg != nil {
		reg.MustRegister(
			c.commandsSent,
			c.commandsCompleted,
			c.urcsDispatched,
			c.linesUndefined,
			c.commandDuration,
			c.registrationEvents,
		)
	}
	return c
}

// CommandSent records one command written to the transport.
func (c *Collector) CommandSent() {
	if c == nil {
		return
	}
	c.commandsSent.Inc()
}

// CommandCompleted records one command reaching a terminator, labeled by
// its final status ("ok" or "error").
func (c *Collector) CommandCompleted(status string, seconds float64) {
	if c == nil {
		return
	}
	c.commandsCompleted.WithLabelValues(status).Inc()
	c.commandDuration.Observe(seconds)
}

// URCDispatched records one unsolicited line delivered to the URC handler.
func (c *Collector) URCDispatched(prefix string) {
	if c == nil {
		return
	}
	c.urcsDispatched.WithLabelValues(prefix).Inc()
}

// LineUndefined records one line that classified as UNDEFINED.
func (c *Collector) LineUndefined() {
	if c == nil {
		return
	}
	c.linesUndefined.Inc()
}

// RegistrationEvent records one CS/PS registration state change.
func (c *Collector) RegistrationEvent(domain, state string) {
	if c == nil {
		return
	}
	c.registrationEvents.WithLabelValues(domain, state).Inc()
}
