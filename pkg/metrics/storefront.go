package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Storefront records cart, catalog and checkout activity.
type Storefront struct {
	cartMutations   *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New registers the storefront metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations applied, by operation and resulting event kind.",
	}, []string{"op", "kind"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_persist_failures_total",
		Help:      "Cart snapshot writes that failed, by store.",
	}, []string{"store"})
	catalogDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_request_duration_seconds",
		Help:      "Duration of upstream catalog requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts, by outcome.",
	}, []string{"outcome"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status class.",
	}, []string{"method", "status"})
	reg.MustRegister(cartMutations, persistFailures, catalogDuration, checkouts, httpRequests)
	return &Storefront{
		cartMutations:   cartMutations,
		persistFailures: persistFailures,
		catalogDuration: catalogDuration,
		checkouts:       checkouts,
		httpRequests:    httpRequests,
	}
}

// IncCartMutation counts one applied cart transition.
func (s *Storefront) IncCartMutation(op, kind string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op), normalizeLabel(kind)).Inc()
}

// IncPersistFailure counts one failed snapshot write.
func (s *Storefront) IncPersistFailure(store string) {
	if s == nil || s.persistFailures == nil {
		return
	}
	s.persistFailures.WithLabelValues(normalizeLabel(store)).Inc()
}

// ObserveCatalogRequest records the duration of one upstream call.
func (s *Storefront) ObserveCatalogRequest(endpoint, outcome string, duration time.Duration) {
	if s == nil || s.catalogDuration == nil {
		return
	}
	s.catalogDuration.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncCheckout counts one checkout attempt.
func (s *Storefront) IncCheckout(outcome string) {
	if s == nil || s.checkouts == nil {
		return
	}
	s.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncHTTPRequest counts one served request.
func (s *Storefront) IncHTTPRequest(method string, status int) {
	if s == nil || s.httpRequests == nil {
		return
	}
	s.httpRequests.WithLabelValues(normalizeLabel(method), statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
