package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session layer's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TabsOpen         prometheus.Gauge
	TabsOpened       prometheus.Counter
	TabsClosed       prometheus.Counter
	Navigations      *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	FaviconResolves  *prometheus.CounterVec
	TransportSwitch  *prometheus.CounterVec
	SuggestRequests  *prometheus.CounterVec
	EventSubscribers prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TabsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "lunar_tabs_open",
			Help: "Number of open tabs",
		}),
		TabsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "lunar_tabs_opened_total",
			Help: "Tabs opened since start",
		}),
		TabsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "lunar_tabs_closed_total",
			Help: "Tabs closed since start",
		}),
		Navigations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_navigations_total",
			Help: "Navigation changes observed by the poller",
		}, []string{"routed"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_submissions_total",
			Help: "Address bar submissions by input kind",
		}, []string{"kind"}),
		FaviconResolves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_favicon_resolves_total",
			Help: "Favicon resolutions by source",
		}, []string{"source"}),
		TransportSwitch: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_transport_switches_total",
			Help: "Transport activations by target and outcome",
		}, []string{"transport", "outcome"}),
		SuggestRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_suggest_requests_total",
			Help: "Remote suggestion lookups by outcome",
		}, []string{"outcome"}),
		EventSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "lunar_event_subscribers",
			Help: "Connected event stream clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TabOpened() {
	if m == nil {
		return
	}
	m.TabsOpened.Inc()
	m.TabsOpen.Inc()
}

func (m *Metrics) TabClosed() {
	if m == nil {
		return
	}
	m.TabsClosed.Inc()
	m.TabsOpen.Dec()
}

func (m *Metrics) Navigation(routed bool) {
	if m == nil {
		return
	}
	label := "false"
	if routed {
		label = "true"
	}
	m.Navigations.WithLabelValues(label).Inc()
}

func (m *Metrics) Submission(kind string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) Favicon(source string) {
	if m == nil {
		return
	}
	m.FaviconResolves.WithLabelValues(source).Inc()
}

func (m *Metrics) Transport(id string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TransportSwitch.WithLabelValues(id, outcome).Inc()
}

func (m *Metrics) Suggest(outcome string) {
	if m == nil {
		return
	}
	m.SuggestRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Subscribers(delta float64) {
	if m == nil {
		return
	}
	m.EventSubscribers.Add(delta)
}
