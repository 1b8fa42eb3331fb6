package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/internal/metrics"
	"github.com/rivetq/rivetsum/internal/ratelimit"
	"github.com/rivetq/rivetsum/pkg/checksum"
)

// DefaultMaxBodySize caps a single checksum request body (64MB)
const DefaultMaxBodySize = 64 << 20

// Options configures a Server
type Options struct {
	Engine      *checksum.Engine   // defaults to checksum.Default()
	Prober      cpufeat.Prober     // defaults to cpufeat.Host()
	Limiter     *ratelimit.Limiter // nil disables rate limiting
	MaxBodySize int64
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Server provides REST API
type Server struct {
	engine  *checksum.Engine
	prober  cpufeat.Prober
	limiter *ratelimit.Limiter
	maxBody int64
	proxied bool
	router  *chi.Mux
}

// NewServer creates a new REST server
func NewServer(opts Options) *Server {
	s := &Server{
		engine:  opts.Engine,
		prober:  opts.Prober,
		limiter: opts.Limiter,
		maxBody: opts.MaxBodySize,
		proxied: opts.TrustProxy,
		router:  chi.NewRouter(),
	}
	if s.engine == nil {
		s.engine = checksum.Default()
	}
	if s.prober == nil {
		s.prober = cpufeat.Host()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(0, 0)
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodySize
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	if s.proxied {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(corsMiddleware)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/checksum/{kind}", s.checksum)
		r.Get("/implementations", s.implementations)
		r.Get("/cpu", s.cpu)
	})

	s.router.Get("/healthz", s.health)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ChecksumResponse is the result of folding a request body into a state
type ChecksumResponse struct {
	Kind           string `json:"kind"`
	State          uint32 `json:"state"`
	Value          uint32 `json:"value"`
	Hex            string `json:"hex"`
	Implementation string `json:"implementation"`
	Bytes          int    `json:"bytes"`
}

// CPUResponse describes the probed host
type CPUResponse struct {
	Arch            string            `json:"arch"`
	Features        []cpufeat.Feature `json:"features"`
	Implementations map[string]string `json:"implementations"`
}

// Handlers
func (s *Server) checksum(w http.ResponseWriter, r *http.Request) {
	kind, err := checksum.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := kind.Initial()
	if raw := r.URL.Query().Get("state"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid state")
			return
		}
		state = uint32(v)
	}

	client := clientKey(r)
	if r.ContentLength > s.maxBody {
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", s.maxBody))
		return
	}
	// A declared length is charged before the body is read.
	declared := r.ContentLength >= 0
	if declared && !s.allow(w, client, int(r.ContentLength)) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", s.maxBody))
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !declared && !s.allow(w, client, len(body)) {
		return
	}

	value := s.engine.Update(kind, state, body)
	metrics.ChecksumRequestsTotal.WithLabelValues(kind.String()).Inc()
	metrics.ChecksumBytesTotal.WithLabelValues(kind.String()).Add(float64(len(body)))

	respondJSON(w, http.StatusOK, ChecksumResponse{
		Kind:           kind.String(),
		State:          state,
		Value:          value,
		Hex:            fmt.Sprintf("%08x", value),
		Implementation: s.engine.Implementation(kind),
		Bytes:          len(body),
	})
}

// allow charges n bytes to client, answering 429 when the budget is spent.
func (s *Server) allow(w http.ResponseWriter, client string, n int) bool {
	if s.limiter.AllowBytes(client, n) {
		return true
	}
	metrics.RateLimitRejections.Inc()
	respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (s *Server) implementations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Implementations())
}

func (s *Server) cpu(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CPUResponse{
		Arch:            runtime.GOARCH,
		Features:        cpufeat.Report(s.prober),
		Implementations: s.engine.Implementations(),
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clientKey identifies the caller for rate limiting: the peer address, or
// the forwarded address when RealIP is installed.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
