package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "music_dna"

// Recorder exports application metrics to Prometheus. A nil Recorder is valid
// and records nothing.
type Recorder struct {
	classifications *prometheus.CounterVec
	profilesSaved   prometheus.Counter
	profilesDeleted prometheus.Counter
	profilesPurged  prometheus.Counter
	matchRequests   prometheus.Counter
	similarity      prometheus.Histogram
	insights        *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New registers the application collectors on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_classifications_total",
			Help:      "Quiz submissions by the persona they were classified as.",
		}, []string{"persona"}),
		profilesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buddy_profiles_saved_total",
			Help:      "Buddy profiles created.",
		}),
		profilesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buddy_profiles_deleted_total",
			Help:      "Buddy profiles deleted by their owners.",
		}),
		profilesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buddy_profiles_purged_total",
			Help:      "Buddy profiles removed after their retention window.",
		}),
		matchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buddy_match_requests_total",
			Help:      "Suggested match computations.",
		}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "buddy_similarity_score",
			Help:      "Similarity scores of suggested matches.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persona_insights_total",
			Help:      "Persona insights served by source.",
		}, []string{"source"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	toRegister := []prometheus.Collector{
		r.classifications, r.profilesSaved, r.profilesDeleted, r.profilesPurged,
		r.matchRequests, r.similarity, r.insights, r.httpDuration,
	}
	for _, collector := range toRegister {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return r, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (r *Recorder) Classified(persona string) {
	if r == nil {
		return
	}
	r.classifications.WithLabelValues(persona).Inc()
}

func (r *Recorder) ProfileSaved() {
	if r == nil {
		return
	}
	r.profilesSaved.Inc()
}

func (r *Recorder) ProfileDeleted() {
	if r == nil {
		return
	}
	r.profilesDeleted.Inc()
}

func (r *Recorder) ProfilesPurged(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.profilesPurged.Add(float64(n))
}

// MatchesSuggested counts a match request and records the similarity of every suggestion.
func (r *Recorder) MatchesSuggested(similarities ...int) {
	if r == nil {
		return
	}
	r.matchRequests.Inc()
	for _, s := range similarities {
		r.similarity.Observe(float64(s))
	}
}

func (r *Recorder) InsightServed(source string) {
	if r == nil {
		return
	}
	r.insights.WithLabelValues(source).Inc()
}

func (r *Recorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
