package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intellieats/internal/app"
	"intellieats/internal/config"
	"intellieats/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("Command failed", "command", os.Args[1], "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, command string, args []string) error {
	ctx := context.Background()
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	switch command {
	case "serve":
		return serve(cfg, application, log)
	case "summary":
		fs := flag.NewFlagSet("summary", flag.ExitOnError)
		userID := fs.Int64("user", 0, "User id")
		date := fs.String("date", "", "Reference day (YYYY-MM-DD), defaults to today")
		weekly := fs.Bool("weekly", false, "Summarize the 7 days ending on -date")
		fs.Parse(args)
		return application.PrintSummary(ctx, os.Stdout, *userID, *date, *weekly)
	case "analyze":
		fs := flag.NewFlagSet("analyze", flag.ExitOnError)
		userID := fs.Int64("user", 0, "User id")
		date := fs.String("date", "", "Reference day (YYYY-MM-DD), defaults to today")
		kind := fs.String("kind", "daily", "daily or weekly")
		fs.Parse(args)
		return application.RunAnalysis(ctx, os.Stdout, *userID, *kind, *date)
	case "barcode":
		if len(args) != 1 {
			return fmt.Errorf("usage: intellieats barcode CODE")
		}
		return application.LookupBarcode(ctx, os.Stdout, args[0])
	case "import-foods":
		if len(args) != 1 {
			return fmt.Errorf("usage: intellieats import-foods FILE")
		}
		return importFoods(ctx, application, args[0])
	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)
		report, err := application.Cleanup(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records and %d expired sessions.\n", report.Metrics, report.Sessions)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(cfg *config.Config, application *app.App, log *logger.Logger) error {
	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exiting")
	return nil
}

func importFoods(ctx context.Context, application *app.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	report, err := application.ImportFoods(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d foods, skipped %d invalid entries.\n", report.Stored, report.Skipped)
	return nil
}

func printUsage() {
	fmt.Println("Usage: intellieats <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve                                   Run the HTTP API")
	fmt.Println("  summary -user ID [-date D] [-weekly]    Print a daily or weekly summary")
	fmt.Println("  analyze -user ID [-date D] [-kind K]    Generate and store a nutrition analysis")
	fmt.Println("  barcode CODE                            Resolve a barcode and cache the product")
	fmt.Println("  import-foods FILE                       Load foods from a JSON array")
	fmt.Println("  metrics-cleanup [-days N]               Remove old usage records and expired sessions")
}
