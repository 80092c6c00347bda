package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/audit"
	"github.com/ekaya-inc/sqlparams/pkg/auth"
	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/handlers"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
	"github.com/ekaya-inc/sqlparams/pkg/mcp"
	mcpauth "github.com/ekaya-inc/sqlparams/pkg/mcp/auth"
	"github.com/ekaya-inc/sqlparams/pkg/mcp/tools"
	"github.com/ekaya-inc/sqlparams/pkg/middleware"
	"github.com/ekaya-inc/sqlparams/pkg/services"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
	"github.com/ekaya-inc/sqlparams/pkg/templates"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Log startup configuration
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("scanner", cfg.Templates.Scanner),
		zap.String("injection_mode", cfg.Templates.InjectionMode),
		zap.Int("max_template_bytes", cfg.Templates.MaxBytes),
		zap.Bool("auth_required", cfg.Auth.Required),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
	)

	library, err := templates.Load(cfg.Templates.File)
	if err != nil {
		logger.Fatal("Failed to load template library", zap.Error(err))
	}
	if cfg.Templates.File != "" {
		logger.Info("Template library loaded",
			zap.String("file", cfg.Templates.File),
			zap.Int("templates", library.Len()))
	}

	scanner, err := sqlparams.ScannerByName(cfg.Templates.Scanner)
	if err != nil {
		logger.Fatal("Invalid scanner", zap.Error(err))
	}

	templateService := services.NewTemplateService(
		sqlparams.NewEngine(sqlparams.WithScanner(scanner)),
		library,
		audit.NewSecurityAuditor(logger),
		services.TemplateServiceConfig{
			MaxTemplateBytes: cfg.Templates.MaxBytes,
			InjectionMode:    cfg.Templates.InjectionMode,
		},
		logger,
	)

	toolAuditor := mcp.NewToolCallAuditor(logger)

	// Authentication is optional; when off, /api and /mcp are open.
	var authMiddleware *auth.Middleware
	var mcpAuthMiddleware func(http.Handler) http.Handler
	if cfg.Auth.Required {
		jwksClient, err := auth.NewJWKSClient(auth.JWKSConfig{
			EnableVerification: cfg.Auth.EnableVerification,
			JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		})
		if err != nil {
			logger.Fatal("Failed to create JWKS client", zap.Error(err))
		}
		defer jwksClient.Close()

		authService := auth.NewAuthService(jwksClient, logger)
		authMiddleware = auth.NewMiddleware(authService, logger)
		mcpAuthMiddleware = mcpauth.NewMiddleware(authService, logger, mcpauth.WithAuditLogger(toolAuditor)).
			RequireAuth(cfg.Auth.MCPRole)
	}

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, library, logger)
	healthHandler.RegisterRoutes(mux)

	sqlHandler := handlers.NewSQLTemplatesHandler(templateService, logger)
	sqlHandler.RegisterRoutes(mux, authMiddleware)

	mcpServer := mcp.NewServer("sqlparams", Version, logger, toolAuditor.Hooks())
	tools.RegisterSQLTemplateTools(mcpServer.MCP(), &tools.SQLTemplateToolDeps{
		TemplateService: templateService,
		Logger:          logger,
	})
	tools.RegisterHealthTool(mcpServer.MCP(), Version, library)

	var mcpHandler http.Handler = mcpServer.NewStreamableHTTPServer()
	mcpHandler = middleware.MCPRequestLogger(logger)(mcpHandler)
	if mcpAuthMiddleware != nil {
		mcpHandler = mcpAuthMiddleware(mcpHandler)
	}
	mux.Handle("/mcp", mcpHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.RequestLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting sqlparams",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}
