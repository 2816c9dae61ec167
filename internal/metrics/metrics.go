// Package metrics exposes prometheus metrics for the scrape pipeline and
// serves them alongside a health endpoint in daemon mode.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	EventsFound        prometheus.Counter
	EventsNew          prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	RunDuration        prometheus.Summary
}

// New registers the pipeline metrics on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datatalk",
			Name:      "scrape_runs_total",
			Help:      "Number of scrape runs by terminal status",
		}, []string{"status"}),
		EventsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datatalk",
			Name:      "events_found_total",
			Help:      "Number of events returned by extraction across runs",
		}),
		EventsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datatalk",
			Name:      "events_new_total",
			Help:      "Number of newly inserted events across runs",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datatalk",
			Name:      "notifications_total",
			Help:      "Number of notification dispatches by channel",
		}, []string{"channel"}),
		RunDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "datatalk",
			Name:      "scrape_run_duration_seconds",
			Help:      "Wall-clock duration of scrape runs",
		}),
	}

	reg.MustRegister(m.RunsTotal, m.EventsFound, m.EventsNew, m.NotificationsTotal, m.RunDuration)
	return m, reg
}

// Handler builds the HTTP mux serving /metrics and /healthz.
func Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve starts a metrics listener on addr. Blocks until the server exits.
func Serve(addr string, reg *prometheus.Registry) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      Handler(reg),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}
