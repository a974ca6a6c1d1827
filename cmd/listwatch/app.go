package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pevans/listwatch/collector"
	"github.com/pevans/listwatch/config"
	"github.com/pevans/listwatch/notify"
	"github.com/pevans/listwatch/store"
	"github.com/pevans/listwatch/transport"
)

// app holds the handles shared by the commands. Every handle is built once
// here and passed down explicitly.
type app struct {
	config    *config.Config
	logger    *log.Logger
	store     *store.Store
	collector *collector.Collector
	notifier  notify.Notifier
	closers   []func() error
}

// loadConfig loads the configuration or exits.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the configured backend and loads the stored records. A
// backend that cannot be read leaves the store empty.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*store.Store, error) {
	backend, err := store.Open(ctx, cfg.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Type, err)
	}

	s := store.New(backend, logger)

	// Load logs its own warning and leaves the store empty on failure
	_ = s.Load(ctx)

	return s, nil
}

// newApp wires the store, the client, the collector and the notifiers.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := log.Default()

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		config:  cfg,
		logger:  logger,
		store:   s,
		closers: []func() error{s.Close},
	}

	client, err := transport.NewClient(cfg.TransportConfig(), logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	a.collector = collector.New(s, client, cfg.CollectorConfig(), logger)

	var notifiers notify.Multi
	if cfg.Notify.Log {
		notifiers = append(notifiers, notify.NewLogNotifier(logger))
	}
	if cfg.Notify.JSONLinesPath != "" {
		jsonl, err := notify.OpenJSONLinesFile(cfg.Notify.JSONLinesPath)
		if err != nil {
			a.close()
			return nil, err
		}
		notifiers = append(notifiers, jsonl)
		a.closers = append(a.closers, jsonl.Close)
	}
	a.notifier = notifiers

	return a, nil
}

// close releases every handle, last opened first.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Printf("WARN: Failed to close: %v", err)
		}
	}
}

// newService returns the watch loop over the app's collector.
func (a *app) newService() *collector.Service {
	return collector.NewService(a.collector, a.notifier, a.config.ServiceConfig(), a.logger)
}
