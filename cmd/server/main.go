package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "medequip-marketplace/internal/api/grpc"
	"medequip-marketplace/internal/api/grpc/interceptor"
	httpapi "medequip-marketplace/internal/api/http"
	"medequip-marketplace/internal/config"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
	"medequip-marketplace/internal/repository/memory"
	"medequip-marketplace/internal/repository/postgres"
	"medequip-marketplace/internal/security"
	"medequip-marketplace/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting medequip marketplace server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	store, closeStore := openStore(cfg)
	defer closeStore()

	metrics.Init()

	// Initialize Services
	notifier := newNotifier(cfg, store)
	audit := service.NewAuditTrail()
	analyticsSettings := service.AnalyticsSettings{
		DefaultMonths: cfg.Analytics.DefaultWindowMonths,
		MaxMonths:     cfg.Analytics.MaxWindowMonths,
		DefaultTopN:   cfg.Analytics.TopN,
		MaxTopN:       cfg.Analytics.MaxTopN,
		Currency:      cfg.Analytics.Currency,
	}

	requestSvc := service.NewServiceRequestService(store, audit, notifier)
	quoteSvc := service.NewQuoteService(store, audit, notifier)
	disputeSvc := service.NewDisputeService(store, audit, notifier)
	memberSvc := service.NewMembershipService(store, audit)
	providerSvc := service.NewProviderAdminService(store, audit)
	auditSvc := service.NewAuditService(store)
	analyticsSvc := service.NewAnalyticsService(store, analyticsSettings)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	resolver := security.NewIdentityResolver(tokenManager, store.Users(), store.Memberships())
	authInterceptor := interceptor.NewAuthInterceptor(resolver)
	peerLimiter := interceptor.NewRateLimiter(cfg.Server.PeerRateLimitRPS, cfg.Server.PeerRateLimitBurst)
	rateLimiter := interceptor.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go peerLimiter.Run(ctx)
	go rateLimiter.Run(ctx)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Metrics(),
			peerLimiter.UnaryPeer(),
			authInterceptor.Unary(),
			rateLimiter.Unary(),
		),
	)

	// Register services
	api.RegisterAll(s, api.Handlers{
		ServiceRequests: api.NewServiceRequestHandler(requestSvc),
		Quotes:          api.NewQuoteHandler(quoteSvc),
		Disputes:        api.NewDisputeHandler(disputeSvc),
		Organizations:   api.NewOrganizationHandler(memberSvc),
		Audit:           api.NewAuditHandler(auditSvc),
		Admin:           api.NewAdminHandler(disputeSvc, providerSvc, analyticsSvc),
	})
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// Health, readiness and metrics on the side HTTP port
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(store, metrics.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := s.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down server...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", "error", err)
	}
	s.GracefulStop()
	logger.Info("Server stopped")
}

// openStore returns the configured store and a func releasing its pool.
func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Database.Type == config.DatabaseTypeMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := postgres.Connect(cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns, cfg.ConnectTimeout())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")
	return postgres.NewStore(db), func() { db.Close() }
}

func newNotifier(cfg *config.Config, store repository.Store) service.Notifier {
	if cfg.Notifications.Provider == config.NotifierSendGrid {
		logger.Info("Using SendGrid notifier", "from", cfg.Notifications.FromEmail)
		return service.NewSendGridNotifier(
			cfg.Notifications.SendGridAPIKey,
			cfg.Notifications.FromEmail,
			cfg.Notifications.FromName,
			store.Organizations(),
		)
	}
	logger.Info("Using log notifier")
	return service.NewLogNotifier()
}
