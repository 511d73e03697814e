package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"taskmanager/internal/analytics"
	"taskmanager/internal/config"
	"taskmanager/internal/logging"
	"taskmanager/internal/remote"
	"taskmanager/internal/tasks"
)

// app holds the collaborators of one CLI invocation. Each invocation is one
// synchronizer session.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	sync     *tasks.Synchronizer

	closers []io.Closer
}

func (a *app) setup(cfg config.Config, level logging.LogLevel, stderr io.Writer) error {
	a.cfg = cfg

	logger, logCloser := logging.New(logging.Options{
		Level:  level,
		File:   cfg.Log.File,
		Stderr: stderr,
	})
	a.logger = logger
	a.closers = append(a.closers, logCloser)

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	source, err := openSource(cfg.Remote, logger)
	if err != nil {
		return err
	}

	sessionID := uuid.New()
	tracker, err := openTracker(cfg.Analytics, sessionID)
	if err != nil {
		return err
	}
	if closer, ok := tracker.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	a.registry = prometheus.NewRegistry()
	a.sync = tasks.NewSynchronizer(store, source,
		tasks.WithSessionID(sessionID),
		tasks.WithLogger(logger),
		tasks.WithTracker(tracker),
		tasks.WithMetricsRegistry(a.registry),
	)
	return nil
}

// close flushes metrics and releases collaborators in reverse order of
// acquisition.
func (a *app) close() {
	if a.sync != nil {
		a.sync.Close()
		if path := a.cfg.Metrics.Textfile; path != "" {
			if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
				a.logger.Warn("write metrics textfile", "path", path, "error", err)
			}
		}
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil && a.logger != nil {
		a.logger.Warn("close collaborators", "error", err)
	}
	a.closers = nil
}

func openStore(cfg config.StoreConfig) (tasks.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return tasks.NewMemoryStore(), nil
	default:
		store, err := tasks.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite task store: %w", err)
		}
		return store, nil
	}
}

func openSource(cfg config.RemoteConfig, logger *slog.Logger) (tasks.Source, error) {
	if cfg.File != "" {
		return remote.NewFileSource(afero.NewOsFs(), cfg.File), nil
	}
	source, err := remote.NewHTTPSource(cfg.BaseURL, cfg.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("configure remote source: %w", err)
	}
	return source, nil
}

func openTracker(cfg config.AnalyticsConfig, sessionID uuid.UUID) (analytics.Tracker, error) {
	if cfg.PostHogAPIKey == "" {
		return analytics.Nop{}, nil
	}
	tracker, err := analytics.NewPostHog(cfg.PostHogAPIKey, cfg.Endpoint, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("configure analytics: %w", err)
	}
	return tracker, nil
}
