// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"

	"github.com/cryptobrief/internal/circuitbreaker"
	"github.com/cryptobrief/internal/dashboard"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
	"github.com/cryptobrief/internal/service"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/types"
	"github.com/cryptobrief/internal/wizard"
)

// Service interfaces for dependency injection and testing

// BriefServiceInterface defines the brief proxy operations
type BriefServiceInterface interface {
	LatestPDF(ctx context.Context) (*models.WorkspaceFile, error)
	OpenLatest(ctx context.Context) (*models.WorkspaceFile, io.ReadCloser, int64, error)
	Feed(ctx context.Context, title, link string) (*feeds.Feed, error)
}

// AuthServiceInterface defines the login operations
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context) (string, error)
	CompleteLogin(ctx context.Context, sess *session.Session, state, code string) (session.State, error)
	LoginWithAccessToken(ctx context.Context, sess *session.Session, accessToken string) (session.State, error)
	Logout(store *session.Store, sess *session.Session)
}

// OnboardingServiceInterface defines the preference wizard operations
type OnboardingServiceInterface interface {
	View(sess *session.Session) (service.WizardView, error)
	Toggle(sess *session.Session, kind wizard.SetKind, item string) (service.WizardView, error)
	SetInput(sess *session.Session, kind wizard.SetKind, text string) (service.WizardView, error)
	AddCustom(sess *session.Session, kind wizard.SetKind, text *string) (service.WizardView, error)
	Remove(sess *session.Session, kind wizard.SetKind, item string) (service.WizardView, error)
	Next(sess *session.Session) (service.WizardView, error)
	Back(sess *session.Session) (service.WizardView, error)
	Finish(ctx context.Context, sess *session.Session) (session.State, error)
	ResetPreferences(ctx context.Context, sess *session.Session) (session.State, error)
}

// DashboardServiceInterface defines the dashboard operations
type DashboardServiceInterface interface {
	View(sess *session.Session) (service.DashboardView, error)
	SelectTab(sess *session.Session, tab types.FeedTab) (service.DashboardView, error)
	ReloadBrief(sess *session.Session) (service.DashboardView, error)
	Navigate(sess *session.Session, page types.Page) (session.State, error)
}

// SettingsServiceInterface defines the delivery settings operations
type SettingsServiceInterface interface {
	Channels(sess *session.Session) (service.ChannelsView, error)
	OpenTelegram(sess *session.Session) (dashboard.TelegramModalView, error)
	SaveTelegram(ctx context.Context, sess *session.Session, telegramID string, rate int) (dashboard.TelegramModalView, error)
	CloseTelegram(sess *session.Session) dashboard.TelegramModalView
}

// UpgradeServiceInterface defines the plan and redeem operations
type UpgradeServiceInterface interface {
	Plans(sess *session.Session) []service.Plan
	Redeem(ctx context.Context, sess *session.Session, code string) (session.State, error)
	Modal(sess *session.Session) dashboard.UpgradeModalView
	CloseModal(sess *session.Session) (dashboard.UpgradeModalView, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Services bundles everything the handlers call into
type Services struct {
	Sessions   *session.Store
	Briefs     BriefServiceInterface
	Auth       AuthServiceInterface
	Onboarding OnboardingServiceInterface
	Dashboard  DashboardServiceInterface
	Settings   SettingsServiceInterface
	Upgrade    UpgradeServiceInterface
	Breakers   *circuitbreaker.Manager
	Checks     map[string]HealthCheck
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	services   Services
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// PublicURL is the browser app origin: CORS allows it and the OAuth
	// callback redirects to it
	PublicURL    string
	CookieSecure bool
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		config:   config,
		logger:   logger.WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware(s.config.PublicURL))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.config.Host + ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Middleware only runs on matched routes; preflights are answered by CORSMiddleware
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Public brief proxy, no session needed
	s.router.HandleFunc("/api/pdf-brief", s.handleBriefLink).Methods("GET")
	s.router.HandleFunc("/api/pdf-brief/download", s.handleBriefDownload).Methods("GET")
	s.router.HandleFunc("/api/pdf-brief/feed", s.handleBriefFeed).Methods("GET")

	// Browser redirect flow
	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.Use(s.SessionMiddleware)
	auth.HandleFunc("/google/login", s.handleGoogleLogin).Methods("GET")
	auth.HandleFunc("/google/callback", s.handleGoogleCallback).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.SessionMiddleware)

	api.HandleFunc("/auth/google", s.handleGoogleTokenLogin).Methods("POST")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	api.HandleFunc("/session", s.handleGetSession).Methods("GET")
	api.HandleFunc("/session/page", s.handleNavigate).Methods("POST")
	api.HandleFunc("/notifications/dismiss", s.handleDismissNotification).Methods("POST")

	// Onboarding wizard
	api.HandleFunc("/wizard", s.handleGetWizard).Methods("GET")
	api.HandleFunc("/wizard/toggle", s.handleWizardToggle).Methods("POST")
	api.HandleFunc("/wizard/input", s.handleWizardInput).Methods("POST")
	api.HandleFunc("/wizard/add", s.handleWizardAdd).Methods("POST")
	api.HandleFunc("/wizard/remove", s.handleWizardRemove).Methods("POST")
	api.HandleFunc("/wizard/next", s.handleWizardNext).Methods("POST")
	api.HandleFunc("/wizard/back", s.handleWizardBack).Methods("POST")
	api.HandleFunc("/wizard/finish", s.handleWizardFinish).Methods("POST")
	api.HandleFunc("/wizard/reset", s.handleWizardReset).Methods("POST")

	// Dashboard
	api.HandleFunc("/dashboard", s.handleGetDashboard).Methods("GET")
	api.HandleFunc("/dashboard/tab", s.handleSelectTab).Methods("POST")
	api.HandleFunc("/dashboard/reload", s.handleReloadBrief).Methods("POST")

	// Delivery settings
	api.HandleFunc("/settings/channels", s.handleGetChannels).Methods("GET")
	api.HandleFunc("/settings/telegram/open", s.handleOpenTelegram).Methods("POST")
	api.HandleFunc("/settings/telegram/save", s.handleSaveTelegram).Methods("POST")
	api.HandleFunc("/settings/telegram/close", s.handleCloseTelegram).Methods("POST")

	// Upgrade
	api.HandleFunc("/upgrade/plans", s.handleGetPlans).Methods("GET")
	api.HandleFunc("/upgrade/redeem", s.handleRedeem).Methods("POST")
	api.HandleFunc("/upgrade/modal/close", s.handleCloseUpgradeModal).Methods("POST")
}

// healthResponse is the /health body
type healthResponse struct {
	Status   string                 `json:"status"`
	Service  string                 `json:"service"`
	Checks   map[string]string      `json:"checks,omitempty"`
	Breakers []circuitbreaker.Stats `json:"breakers,omitempty"`
	Sessions int                    `json:"sessions"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "healthy",
		Service: "cryptobrief",
		Checks:  make(map[string]string, len(s.services.Checks)),
	}
	status := http.StatusOK
	for name, check := range s.services.Checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if s.services.Breakers != nil {
		resp.Breakers = s.services.Breakers.Stats()
	}
	if s.services.Sessions != nil {
		resp.Sessions = s.services.Sessions.Len()
	}

	respondJSON(w, status, resp)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
