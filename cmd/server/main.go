// Package main is the entry point for the ifixai chat server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hpn/ifixai-chat/internal/adapter"
	"github.com/hpn/ifixai-chat/internal/chat"
	"github.com/hpn/ifixai-chat/internal/config"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/handler"
	"github.com/hpn/ifixai-chat/internal/metrics"
	"github.com/hpn/ifixai-chat/internal/security"
	"github.com/hpn/ifixai-chat/internal/store"
	"github.com/hpn/ifixai-chat/internal/ui"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ifixai: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// 1. Load configuration (Singleton)
	// =========================================================================
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// =========================================================================
	// 2. Setup structured logger with key redaction
	// =========================================================================
	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting ifixai",
		slog.String("version", version),
		slog.String("address", cfg.Server.Address()),
		slog.String("database", cfg.Database.Path),
	)

	// =========================================================================
	// 3. Open storage and wire the chat pipeline
	// =========================================================================
	ctx := context.Background()
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// =========================================================================
	// 4. Start HTTP server with graceful shutdown
	// =========================================================================
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	ui.PrintBanner(version)
	ui.PrintStartupInfo(srv.Addr, cfg.Database.Path, app.agentStatus(ctx))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// =========================================================================
	// 5. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var result *multierror.Error
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			result = multierror.Append(result, fmt.Errorf("serve: %w", err))
		}
	}
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown: %w", err))
	}
	if err := app.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Error("shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
	return nil
}

// app holds everything the server needs beyond the listener.
type app struct {
	router  http.Handler
	db      *store.DB
	metrics *metrics.Metrics
	cfg     *config.Configuration
	logger  *slog.Logger
}

// newApp opens the database and wires providers, dispatcher, chat service
// and HTTP routes.
func newApp(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (*app, error) {
	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	m := metrics.New()

	dispatcher := adapter.NewDispatcher(
		buildProviders(cfg),
		adapter.WithCredentialSource(db.Credentials),
		adapter.WithLogger(logger),
	)

	chatService := chat.NewService(db.Conversations, db.Messages, dispatcher,
		chat.WithModelCatalog(db.Models),
		chat.WithObserver(m),
		chat.WithLogger(logger),
		chat.WithStreamDelay(cfg.Chat.StreamDelay()),
	)

	h := handler.NewHandler(chatService, db.Conversations, db.Messages, db.Credentials, db.Models,
		handler.WithLogger(logger),
		handler.WithMetricsHandler(m.Handler()),
		handler.WithHealthCheck(db.Ping),
	)

	router := handler.NewRouter(h, handler.RouterConfig{
		Logger:      logger,
		Observer:    m,
		BodyLimitMB: cfg.Server.BodyLimitMB,
		ReleaseMode: cfg.Logging.Level != "debug",
	})

	return &app{router: router, db: db, metrics: m, cfg: cfg, logger: logger}, nil
}

// Close releases the database.
func (a *app) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// agentStatus reports the default model and stored key count per agent.
func (a *app) agentStatus(ctx context.Context) []ui.AgentStatus {
	defaults := map[domain.AgentType]string{
		domain.AgentGemini: a.cfg.Providers.Gemini.DefaultModel,
		domain.AgentClaude: a.cfg.Providers.Claude.DefaultModel,
		domain.AgentQwen:   a.cfg.Providers.Qwen.DefaultModel,
		domain.AgentGPT:    a.cfg.Providers.GPT.DefaultModel,
	}

	statuses := make([]ui.AgentStatus, 0, len(domain.AllAgentTypes))
	for _, agent := range domain.AllAgentTypes {
		model := defaults[agent]
		stored, err := a.db.Models.DefaultModel(ctx, agent)
		if err != nil {
			a.logger.Warn("read default model", slog.String("agent", string(agent)), slog.String("error", err.Error()))
		} else if stored != "" {
			model = stored
		}
		keys, err := a.db.Credentials.ActiveKeys(ctx, agent)
		if err != nil {
			a.logger.Warn("read stored keys", slog.String("agent", string(agent)), slog.String("error", err.Error()))
		}
		statuses = append(statuses, ui.AgentStatus{
			Name:         agent.DisplayName(),
			DefaultModel: model,
			StoredKeys:   len(keys),
		})
	}
	return statuses
}

// buildProviders creates one adapter per agent sharing a single HTTP client.
func buildProviders(cfg *config.Configuration) []adapter.AIProvider {
	client := &http.Client{Timeout: cfg.Providers.Timeout()}

	common := []adapter.Option{
		adapter.WithHTTPClient(client),
		adapter.WithStrictAttachments(cfg.Chat.StrictAttachments),
	}
	with := func(p config.ProviderConfig) []adapter.Option {
		opts := append([]adapter.Option{}, common...)
		if p.BaseURL != "" {
			opts = append(opts, adapter.WithBaseURL(p.BaseURL))
		}
		if p.DefaultModel != "" {
			opts = append(opts, adapter.WithDefaultModel(p.DefaultModel))
		}
		return opts
	}

	return []adapter.AIProvider{
		adapter.NewGeminiAdapter(with(cfg.Providers.Gemini)...),
		adapter.NewClaudeAdapter(with(cfg.Providers.Claude)...),
		adapter.NewQwenAdapter(with(cfg.Providers.Qwen)...),
		adapter.NewGPTAdapter(with(cfg.Providers.GPT)...),
	}
}

// setupLogger creates a structured logger based on config. Every record
// passes through the redacting handler. The returned func closes the log file.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stdout
		closeFn           = func() {}
	)
	switch cfg.OutputPath {
	case "", "stdout":
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	logger := newLogger(out, cfg)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func newLogger(out io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	return slog.New(security.NewRedactedHandler(base))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
