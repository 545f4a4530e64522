// Package main provides the API server entry point for the crypto brief dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptobrief/internal/adapter"
	"github.com/cryptobrief/internal/api"
	"github.com/cryptobrief/internal/brief"
	"github.com/cryptobrief/internal/circuitbreaker"
	"github.com/cryptobrief/internal/config"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/retry"
	"github.com/cryptobrief/internal/service"
	"github.com/cryptobrief/internal/session"
	"github.com/cryptobrief/internal/storage"
	"github.com/cryptobrief/internal/timer"
)

// sessionSweepInterval is how often idle sessions are pruned
const sessionSweepInterval = time.Minute

func main() {
	fmt.Println("Crypto Brief API Server")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Account store: direct Postgres when a connection string is set, else the REST API
	var accounts storage.AccountStore
	if cfg.Supabase.DatabaseURL != "" {
		var postgres *storage.PostgresDB
		err := retry.Do(context.Background(), nil, "postgres", func(ctx context.Context, attempt int) error {
			var err error
			postgres, err = storage.NewPostgresDB(&cfg.Supabase)
			return err
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()
		accounts = storage.NewAccountRepository(postgres)
		logger.Info("Using Postgres account store")
	} else {
		rest, err := storage.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.AnonKey)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Supabase client")
		}
		accounts = rest
		logger.Info("Using Supabase REST account store")
	}

	checks := map[string]api.HealthCheck{
		"accounts": accounts.Ping,
	}

	// Redis holds OAuth login states; without it only the token login works
	var (
		states  service.OAuthStateStore
		redisDB *storage.RedisDB
	)
	redisRetry := retry.DefaultConfig()
	redisRetry.MaxAttempts = 3
	err = retry.Do(context.Background(), redisRetry, "redis", func(ctx context.Context, attempt int) error {
		var err error
		redisDB, err = storage.NewRedisDB(&cfg.Redis)
		return err
	})
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, Google redirect login disabled")
	} else {
		defer redisDB.Close()
		states = storage.NewOAuthStateStore(redisDB.Client(), storage.DefaultOAuthStateTTL)
		checks["redis"] = redisDB.Ping
	}

	// Upstream clients, each behind a circuit breaker that only counts outages
	breakers := circuitbreaker.NewManager()
	breakerConfig := func(name string) *circuitbreaker.Config {
		c := circuitbreaker.DefaultConfig(name)
		c.IsFailure = apperrors.IsUpstreamOutage
		return c
	}

	openServ := adapter.NewOpenServClient(cfg.OpenServ.APIKey, cfg.OpenServ.WorkspaceID, cfg.OpenServ.BaseURL)
	briefs := brief.NewService(openServ, breakers.GetOrCreate("openserv", breakerConfig("openserv")))

	coinGecko := adapter.NewCoinGeckoClient(cfg.CoinGecko.APIKey, cfg.CoinGecko.BaseURL, cfg.CoinGecko.RequestsPerMinute).
		WithBreaker(breakers.GetOrCreate("coingecko", breakerConfig("coingecko")))

	identity := adapter.NewGoogleIdentity(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	if !identity.Configured() {
		logger.Warn("GOOGLE_CLIENT_ID not set, Google redirect login disabled")
	}

	clock := timer.Real()
	sessions := session.NewStore(session.Deps{
		Clock:         clock,
		Briefs:        briefs,
		Trending:      coinGecko,
		SettingsDelay: cfg.UI.SettingsSaveDelay,
		UpgradeDelay:  cfg.UI.UpgradeModalDelay,
		BannerDismiss: cfg.UI.BannerAutoDismiss,
		Logger:        logger,
	})

	logger.Info("Initializing services...")
	services := api.Services{
		Sessions:   sessions,
		Briefs:     briefs,
		Auth:       service.NewAuthService(accounts, identity, states, logger),
		Onboarding: service.NewOnboardingService(accounts, clock, logger),
		Dashboard:  service.NewDashboardService(),
		Settings:   service.NewSettingsService(accounts, logger),
		Upgrade:    service.NewUpgradeService(accounts, logger),
		Breakers:   breakers,
		Checks:     checks,
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		PublicURL:       cfg.Server.PublicURL,
		CookieSecure:    cfg.Server.CookieSecure,
	}
	server := api.NewServer(serverConfig, services, logger)

	// Prune sessions the browser stopped using
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case now := <-ticker.C:
				sessions.PruneIdle(now, cfg.Server.SessionMaxIdle)
			}
		}
	}()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	sessions.Close()

	logger.Info("Server exited")
}
