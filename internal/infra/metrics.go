package infra

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_requests_total",
		Help: "Total number of HTTP requests and gRPC calls",
	}, []string{"transport"})
	RequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_request_errors_total",
		Help: "Total number of failed HTTP requests and gRPC calls",
	}, []string{"transport"})
	ProcessingDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulator_processing_duration_seconds",
		Help:    "Duration of request processing in seconds, including the lifetime of streams",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"transport"})

	// Stream metrics
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_samples_total",
		Help: "Total number of samples delivered to consumers",
	}, []string{"transport", "has_value"})
	ActiveStreams = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulator_active_streams",
		Help: "Number of sample streams currently open",
	}, []string{"transport"})

	registerOnce sync.Once
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

func init() {
	InitMetrics()
}

// InitMetrics registers all Prometheus collectors used by the application.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestErrorsTotal,
			ProcessingDurationSeconds,
			SamplesTotal,
			ActiveStreams,
		)
	})
}

// Handler returns an HTTP handler that exposes the registered Prometheus metrics.
func Handler() http.Handler {
	InitMetrics()
	return promhttp.Handler()
}

// NewMetricsServer builds the server exposing /metrics on port.
func NewMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// HTTPMiddleware instruments HTTP handlers with request/latency metrics.
func HTTPMiddleware() func(http.Handler) http.Handler {
	InitMetrics()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r == nil {
				RequestErrorsTotal.WithLabelValues(TransportHTTP).Inc()
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				ProcessingDurationSeconds.WithLabelValues(TransportHTTP).Observe(time.Since(start).Seconds())
				RequestsTotal.WithLabelValues(TransportHTTP).Inc()

				if recorder.Status() >= http.StatusBadRequest {
					RequestErrorsTotal.WithLabelValues(TransportHTTP).Inc()
				}
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}

// GRPCStreamInterceptor instruments streaming gRPC handlers with request/latency metrics.
func GRPCStreamInterceptor() grpc.StreamServerInterceptor {
	InitMetrics()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()

		defer func() {
			ProcessingDurationSeconds.WithLabelValues(TransportGRPC).Observe(time.Since(start).Seconds())
			RequestsTotal.WithLabelValues(TransportGRPC).Inc()

			if code := status.Code(err); code != codes.OK && code != codes.Canceled {
				RequestErrorsTotal.WithLabelValues(TransportGRPC).Inc()
			}
		}()

		return handler(srv, ss)
	}
}

// RecordSample counts a sample delivered over transport.
func RecordSample(transport string, hasValue bool) {
	label := "false"
	if hasValue {
		label = "true"
	}
	SamplesTotal.WithLabelValues(transport, label).Inc()
}

// StreamStarted marks a stream as open and returns the func that closes it.
func StreamStarted(transport string) func() {
	gauge := ActiveStreams.WithLabelValues(transport)
	gauge.Inc()
	return gauge.Dec
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Status() int {
	return r.status
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
