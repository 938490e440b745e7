package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/routewise/routewise/internal/api"
	"github.com/routewise/routewise/internal/config"
	"github.com/routewise/routewise/internal/matrix"
	"github.com/routewise/routewise/internal/netutil"
	"github.com/routewise/routewise/internal/service"
	"github.com/routewise/routewise/internal/solver"
	"github.com/routewise/routewise/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		return err
	}

	st, err := store.Bootstrap(envCfg.StateDir)
	if err != nil {
		return fmt.Errorf("persistence bootstrap: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("Store close error: %v", err)
		}
	}()
	log.Println("Persistence bootstrap complete")

	provider := buildMatrixProvider(envCfg)
	if closer, ok := provider.(interface{ Close() }); ok {
		defer closer.Close()
	}

	core := service.NewCore(
		st,
		provider,
		solver.New(envCfg.QuickTimeLimit, envCfg.ThoroughTimeLimit),
		solver.NewPool(envCfg.SolverWorkers),
	)

	if envCfg.SeedFile != "" {
		if err := core.LoadSeedFile(envCfg.SeedFile); err != nil {
			return err
		}
	}

	housekeeper, err := service.NewHousekeeper(core, envCfg.TempPurgeSchedule, envCfg.RouteRetentionDays)
	if err != nil {
		return err
	}
	housekeeper.Start()
	defer housekeeper.Stop()

	srv := api.NewServer(
		envCfg.ListenAddress,
		envCfg.Port,
		envCfg.AdminToken,
		service.NewSystemInfo(),
		core,
		int64(envCfg.APIMaxBodyBytes),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("RouteWise API server starting on %s:%d", envCfg.ListenAddress, envCfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down...", sig)
	case err := <-serverErrCh:
		return fmt.Errorf("API server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
	return nil
}

// buildMatrixProvider assembles the matrix chain: OSRM when configured,
// great-circle fallback behind it, cache in front of everything.
func buildMatrixProvider(envCfg *config.EnvConfig) matrix.Provider {
	fallback := matrix.NewHaversineBackend(envCfg.FallbackSpeedMPH)

	var primary matrix.Provider
	if envCfg.OSRMBaseURL != "" {
		fetcher := netutil.NewDirectFetcher(envCfg.MatrixTimeout, "routewise")
		primary = matrix.NewOSRMBackend(envCfg.OSRMBaseURL, envCfg.OSRMMaxLocations, fetcher)
	}

	chained := matrix.NewFallbackProvider(primary, fallback)
	return matrix.NewCachedProvider(chained, envCfg.MatrixCacheMaxMB<<20, envCfg.MatrixCacheTTL)
}
