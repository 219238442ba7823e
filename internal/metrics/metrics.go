package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/xblt/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xblt"

var (
	// OTP issuance

	OTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_requests_total",
		Help:      "OTP issuance requests, by outcome.",
	}, []string{"outcome"})

	EmailFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_send_failures_total",
		Help:      "Emails that could not be handed to the provider.",
	})

	// OAuth

	OAuthLoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_logins_total",
		Help:      "OAuth callback results, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Outcome label values.
const (
	OutcomeIssued     = "issued"
	OutcomeUserExists = "user_exists"
	OutcomeOTPActive  = "otp_active"
	OutcomeError      = "error"
	OutcomeNoUser     = "no_user"
	OutcomeAuthFailed = "auth_failed"
	OutcomeLoggedIn   = "logged_in"
)

func Register() {
	prometheus.MustRegister(
		OTPRequestsTotal,
		EmailFailuresTotal,
		OAuthLoginsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// Prober is the subset of health.Checker served by the metrics server.
type Prober interface {
	Liveness(ctx context.Context) health.HealthResult
	Readiness(ctx context.Context) health.HealthResult
}

// NewServer exposes /metrics, /healthz and /readyz on a separate port so
// they are never reachable through the public router.
func NewServer(addr string, prober Prober) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, prober.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, prober.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	status := http.StatusOK
	if result.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
