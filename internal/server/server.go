package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/whatsapp"
)

// requestTimeout covers a turn including narrative generation
const requestTimeout = 90 * time.Second

// QRGenerator starts a WhatsApp pairing
type QRGenerator interface {
	GenerateQRCode(ctx context.Context, phoneNumber string) (string, []byte, error)
}

// PairingStore lists and removes WhatsApp pairings
type PairingStore interface {
	ListSessions() ([]whatsapp.SessionInfo, error)
	DeleteSession(phoneNumber, sessionID string) error
}

// Disconnector drops a live WhatsApp connection
type Disconnector interface {
	Disconnect(phoneNumber string) error
}

// Server exposes the game over HTTP
type Server struct {
	games    interfaces.GameManager
	qr       QRGenerator
	pairings PairingStore
	clients  Disconnector
	logger   *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithWhatsApp enables the pairing endpoints
func WithWhatsApp(qr QRGenerator, pairings PairingStore, clients Disconnector) Option {
	return func(s *Server) {
		s.qr = qr
		s.pairings = pairings
		s.clients = clients
	}
}

// New creates a Server over a game manager
func New(games interfaces.GameManager, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{games: games, logger: logger.Named("http")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Get("/missions", s.handleListMissions)

	router.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateCharacter)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleResetSession)
			r.Post("/missions", s.handleStartMission)
			r.Post("/choices", s.handleMakeChoice)
			r.Post("/combat", s.handleResolveCombat)
			r.Post("/items", s.handleUseItem)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/archive/{turn}", s.handleRecoverNarrative)
		})
	})

	router.Route("/whatsapp", func(r chi.Router) {
		r.Post("/qr", s.handleGenerateQR)
		r.Get("/sessions", s.handleListPairings)
		r.Delete("/sessions/{phoneNumber}/{pairingID}", s.handleDeletePairing)
	})

	return router
}

// HTTPServer wraps the router in an http.Server listening on port
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// logRequests logs every request with zap and records its metrics
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		observeRequest(r.Method, route, status, elapsed)

		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
