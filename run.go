package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"slackagent/agent"
	"slackagent/bot"
	"slackagent/config"
	"slackagent/mcp"
	"slackagent/metrics"
	"slackagent/provider"
	"slackagent/slack"
	"slackagent/storage"
)

const defaultShutdownTimeout = 10 * time.Second

type runOptions struct {
	configFile        string
	envFile           string
	metricsAddr       string
	allowPartialTools bool
	shutdownTimeout   time.Duration
}

// run starts every component in order and blocks until SIGINT/SIGTERM or a
// fatal transport error. Whatever was started is torn down on the way out:
// Slack first, then tool servers, then the cache.
func run(ctx context.Context, opts runOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.shutdownTimeout <= 0 {
		opts.shutdownTimeout = defaultShutdownTimeout
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}
	// The env file may set SLACKAGENT_DEBUG.
	logger := config.InitLogger()

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	creds, err := config.LoadCredentials(cfg.ProviderType())
	if err != nil {
		return err
	}

	var (
		m            *metrics.Metrics
		toolObserver mcp.Observer
		turnObserver bot.TurnObserver
		slackObs     slack.EventObserver
	)
	if opts.metricsAddr != "" {
		m = metrics.New()
		toolObserver, turnObserver, slackObs = m, m, m

		srv, err := serveMetrics(opts.metricsAddr, m, logger)
		if err != nil {
			return err
		}
		defer shutdownWithin(opts.shutdownTimeout, func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		})
	}

	cache, err := storage.Open(ctx, creds.CacheURL, logger)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidURL) {
			return fmt.Errorf("%w: %s: %w", config.ErrConfiguration, config.EnvCacheURL, err)
		}
		return fmt.Errorf("failed to open conversation cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close conversation cache", "error", err)
		}
	}()

	tools := mcp.NewManager(
		mcp.WithDefaultTimeout(cfg.SessionTimeout()),
		mcp.WithLogger(logger),
		mcp.WithObserver(toolObserver),
	)
	if err := tools.Configure(cfg.Descriptors()); err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	defer shutdownWithin(opts.shutdownTimeout, func(ctx context.Context) error {
		tools.DisconnectAll(ctx)
		return nil
	})

	if opts.allowPartialTools {
		if err := tools.ConnectAvailable(ctx); err != nil {
			logger.Warn("continuing without some tool servers", "error", err)
		}
	} else if err := tools.ConnectAll(ctx); err != nil {
		return err
	}

	llm, err := provider.NewProvider(cfg.ProviderConfig(creds))
	if err != nil {
		return fmt.Errorf("failed to create %s provider: %w", cfg.ProviderType(), err)
	}
	if m != nil {
		llm = m.InstrumentProvider(llm)
	}

	agentCfg := cfg.AgentConfig()
	turns := bot.NewExecutor(cache, agent.New(agentCfg, llm, tools, logger), logger, turnObserver)
	logger.Info("agent ready",
		"agent", agentCfg.Name,
		"provider", cfg.ProviderType(),
		"model", agentCfg.Model,
		"tool_servers", len(tools.ListServers()),
	)

	adapter := slack.NewAdapter(slack.Config{
		BotToken:   creds.SlackBotToken,
		AppToken:   creds.SlackAppToken,
		OnError:    slack.ErrorPolicy(cfg.OnError),
		ErrorReply: cfg.ErrorReply,
		Debug:      config.CheckDebug(),
	}, turns, logger, slackObs)
	defer shutdownWithin(opts.shutdownTimeout, adapter.Close)

	if err := adapter.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// loadEnvFile applies a dotenv file over the process environment. A missing
// file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: failed to load %s: %w", config.ErrConfiguration, path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}

// shutdownWithin runs fn with a fresh context bounded by timeout, since the
// run context is already cancelled by the time teardown happens.
func shutdownWithin(timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("shutdown step did not finish cleanly", "error", err)
	}
}
