package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

const shutdownTimeout = 5 * time.Second

// AdminServer serves the operational endpoints of the proxy:
//
//	GET /metrics  counters in the Prometheus text format
//	GET /healthz  200 "ok" while the process runs
type AdminServer struct {
	endpoint string
	debug    bool
}

// NewAdminServer creates an admin server listening on endpoint.
// With debug set every request is logged.
func NewAdminServer(endpoint string, debug bool) *AdminServer {
	return &AdminServer{endpoint: endpoint, debug: debug}
}

// Handler returns the routes of the admin server
func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.debug {
		mux.HandleFunc("GET /metrics", loggerMiddleware(handleMetrics))
		mux.HandleFunc("GET /healthz", loggerMiddleware(handleHealth))
	} else {
		mux.HandleFunc("GET /metrics", handleMetrics)
		mux.HandleFunc("GET /healthz", handleHealth)
	}
	return mux
}

// Serve listens on the endpoint until ctx is cancelled
func (s *AdminServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.endpoint)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on an existing listener until ctx is cancelled
func (s *AdminServer) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			Logger.Warningf("Admin server shutdown: %v", err)
		}
	})
	defer stop()

	Logger.Infof("Starting admin server on %s", listener.Addr())
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
