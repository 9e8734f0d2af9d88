package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/infrastructure/server"
	"github.com/cinelog/core/internal/infrastructure/store"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CineLog API server",
		Long:  "Start the CineLog API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewInitCommand creates the init command, which materializes an empty
// collection file at the configured path.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the collection file",
		Long:  "Create an empty collection file at the configured store path if none exists",
		Run: func(cmd *cobra.Command, args []string) {
			initStore()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CineLog version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load configuration: %v", err)
			}
			fmt.Printf("%s %s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	st, err := store.Open(cfg.Store.Path, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open collection store", "error", err)
	}
	defer st.Close()

	srv, err := server.New(cfg, st, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting CineLog API server",
		"port", cfg.Server.Port,
		"store", cfg.Store.Path,
		"environment", cfg.App.Environment,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			appLogger.Info("Server stopped", "error", err)
		}
	}()

	// Wait for interrupt, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Graceful shutdown failed", "error", err)
	}
}

func initStore() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	st, err := store.Open(cfg.Store.Path, appLogger)
	if err != nil {
		log.Fatalf("Failed to open collection store: %v", err)
	}
	defer st.Close()

	col, err := st.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize collection: %v", err)
	}

	fmt.Printf("Collection ready at %s (%d items)\n", cfg.Store.Path, len(col.Items))
}
