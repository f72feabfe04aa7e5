package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"slackagent/model"
)

var (
	// ErrCache wraps every failure of the backing store.
	ErrCache = errors.New("conversation cache error")

	// ErrInvalidURL reports a cache URL that cannot be opened.
	ErrInvalidURL = errors.New("invalid cache URL")
)

// DefaultURL is used when no cache URL is configured.
const DefaultURL = "memory://"

// Cache persists conversation histories by key. Implementations must be safe
// for concurrent use and must never hand out storage the caller can mutate.
type Cache interface {
	// Get returns the stored history. A missing key yields (nil, false, nil).
	Get(ctx context.Context, key string) (model.History, bool, error)
	Set(ctx context.Context, key string, history model.History) error
	Close() error
}

// Open selects a cache implementation from the URL scheme:
//
//	memory://                      in-process, lost on restart
//	redis://, rediss://, unix://   networked store
//	sqlite://<path>                local database file
func Open(ctx context.Context, rawURL string, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache")

	if rawURL == "" {
		logger.Warn("CACHE_URL not set, using in-memory conversation cache; history is lost on restart")
		rawURL = DefaultURL
	}

	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, rawURL)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		logger.Info("using in-memory conversation cache")
		return NewMemoryCache(), nil
	case "redis", "rediss", "unix":
		return NewRedisCache(ctx, rawURL, logger)
	case "sqlite":
		return NewSQLiteCache(ctx, rest, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
	}
}

// redactURL drops credentials before a URL is logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
