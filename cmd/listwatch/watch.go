package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/listwatch/api"
	"github.com/pevans/listwatch/collector"
)

func handleRun(configPath string, args []string) {
	// Parse flags for run command
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	noAPI := fs.Bool("no-api", false, "Do not serve the API while running")
	fs.Parse(args)

	cfg := loadConfig(configPath)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.close()

	service := a.newService()

	var server *http.Server
	if !*noAPI && cfg.API.Addr != "" {
		server = startAPI(a, cfg.API.Addr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	// Start service in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- service.Run(ctx)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigChan:
		log.Printf("INFO: Received signal: %v, shutting down", sig)
		cancel()
		service.Stop()

		// Wait for shutdown with timeout
		shutdownTimer := time.NewTimer(60 * time.Second)
		select {
		case <-errChan:
			log.Println("INFO: Service stopped")
		case <-shutdownTimer.C:
			log.Println("WARN: Shutdown timeout exceeded, forcing exit")
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ERROR: Service error: %v", err)
		}
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN: API shutdown: %v", err)
		}
	}
}

func handleOnce(configPath string, args []string) {
	// Parse flags for once command
	fs := flag.NewFlagSet("once", flag.ExitOnError)
	endPage := fs.Int("end-page", 0, "Last listing page to scan (overrides config)")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	cfg := loadConfig(configPath)
	if *endPage > 0 {
		cfg.Search.EndPage = *endPage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	result, err := a.newService().RunOnce(ctx)

	switch *format {
	case "json":
		printCycleJSON(result)
	default:
		printCycleSummary(result)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cycle failed: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

func handleServe(configPath string, args []string) {
	// Parse flags for serve command
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(configPath)
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if cfg.API.Addr == "" {
		fmt.Fprintf(os.Stderr, "Error: no listen address configured\n")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.close()

	server := api.NewServer(a.collector)
	log.Printf("INFO: Starting listwatch API server on http://%s/api/v1/records", cfg.API.Addr)

	if err := server.SetupRouter().Run(cfg.API.Addr); err != nil {
		log.Printf("ERROR: Server failed: %v", err)
	}
}

// startAPI serves the API in the background until the returned server is
// shut down.
func startAPI(a *app, addr string) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(a.collector).SetupRouter(),
	}

	go func() {
		log.Printf("INFO: Starting listwatch API server on http://%s/api/v1/records", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ERROR: API server failed: %v", err)
		}
	}()

	return server
}

// printCycleSummary prints the counters of a cycle and its delta set.
func printCycleSummary(result *collector.CycleResult) {
	if result == nil {
		return
	}

	fmt.Println("Cycle completed:")
	fmt.Printf("  ID: %s\n", result.ID)
	fmt.Printf("  Duration: %v\n", result.Duration().Round(time.Millisecond))
	fmt.Printf("  Rechecked: %d\n", result.Rechecked)
	fmt.Printf("  Added: %d\n", result.Added)
	fmt.Printf("  Updated: %d\n", result.Updated)
	fmt.Printf("  Deleted: %d\n", result.Deleted)
	fmt.Printf("  Known: %d\n", result.Known)
	fmt.Printf("  Failed: %d\n", result.Failed)

	if len(result.Delta) > 0 {
		fmt.Println()
		fmt.Printf("Qualified (%d):\n", len(result.Delta))
		for _, r := range result.Delta {
			fmt.Printf("  %-12s %6.2f  %s\n", r.ID, r.Score, r.ProfileURL)
		}
	}

	// Show errors if any
	var failures []string
	for _, page := range result.Pages {
		if page.Err != nil {
			failures = append(failures, fmt.Sprintf("page %d: %v", page.Page, page.Err))
		}
	}
	for _, item := range result.Items {
		if item.Err != nil {
			failures = append(failures, fmt.Sprintf("%s %s: %v", item.Stage, item.ID, item.Err))
		}
	}
	if len(failures) > 0 {
		fmt.Println()
		fmt.Println("Errors:")
		for _, failure := range failures {
			fmt.Printf("  %s\n", failure)
		}
	}
}
