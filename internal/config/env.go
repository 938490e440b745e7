// Package config handles environment-based configuration loading.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// EnvConfig holds all environment-variable-driven settings.
type EnvConfig struct {
	// Directories
	StateDir string

	// Network
	ListenAddress string
	Port          int

	// Auth
	AdminToken string

	// API
	APIMaxBodyBytes int

	// Matrix provider
	OSRMBaseURL       string
	OSRMMaxLocations  int
	MatrixTimeout     time.Duration
	MatrixCacheTTL    time.Duration
	MatrixCacheMaxMB  int
	FallbackSpeedMPH  float64

	// Solver
	QuickTimeLimit    time.Duration
	ThoroughTimeLimit time.Duration
	SolverWorkers     int

	// Housekeeping
	TempPurgeSchedule  string
	RouteRetentionDays int

	// Seed
	SeedFile string
}

// LoadEnvConfig reads environment variables and returns a validated EnvConfig.
// Returns an error if any required variable is missing or any value is invalid.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	// --- Directories ---
	cfg.StateDir = envStr("ROUTEWISE_STATE_DIR", "/var/lib/routewise")

	// --- Network ---
	cfg.ListenAddress = strings.TrimSpace(envStr("ROUTEWISE_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("ROUTEWISE_PORT", 2280, &errs)

	// --- API ---
	cfg.APIMaxBodyBytes = envInt("ROUTEWISE_API_MAX_BODY_BYTES", 1<<20, &errs)

	// --- Matrix provider ---
	cfg.OSRMBaseURL = strings.TrimRight(envStr("ROUTEWISE_OSRM_URL", ""), "/")
	cfg.OSRMMaxLocations = envInt("ROUTEWISE_OSRM_MAX_LOCATIONS", 100, &errs)
	cfg.MatrixTimeout = envDuration("ROUTEWISE_MATRIX_TIMEOUT", 30*time.Second, &errs)
	cfg.MatrixCacheTTL = envDuration("ROUTEWISE_MATRIX_CACHE_TTL", time.Hour, &errs)
	cfg.MatrixCacheMaxMB = envInt("ROUTEWISE_MATRIX_CACHE_MAX_MB", 64, &errs)
	cfg.FallbackSpeedMPH = envFloat("ROUTEWISE_FALLBACK_SPEED_MPH", 30, &errs)

	// --- Solver ---
	cfg.QuickTimeLimit = envDuration("ROUTEWISE_SOLVE_QUICK_LIMIT", 30*time.Second, &errs)
	cfg.ThoroughTimeLimit = envDuration("ROUTEWISE_SOLVE_THOROUGH_LIMIT", 120*time.Second, &errs)
	cfg.SolverWorkers = envInt("ROUTEWISE_SOLVER_WORKERS", 0, &errs)

	// --- Housekeeping ---
	cfg.TempPurgeSchedule = envStr("ROUTEWISE_TEMP_PURGE_SCHEDULE", "30 3 * * *")
	cfg.RouteRetentionDays = envInt("ROUTEWISE_ROUTE_RETENTION_DAYS", 30, &errs)

	// --- Seed ---
	cfg.SeedFile = envStr("ROUTEWISE_SEED_FILE", "")

	// --- Auth (must be defined; empty means auth disabled) ---
	adminToken, hasAdminToken := os.LookupEnv("ROUTEWISE_ADMIN_TOKEN")
	cfg.AdminToken = adminToken

	// --- Validation ---
	if !hasAdminToken {
		errs = append(errs, "ROUTEWISE_ADMIN_TOKEN must be defined (can be empty)")
	}
	if cfg.ListenAddress == "" {
		errs = append(errs, "ROUTEWISE_LISTEN_ADDRESS must not be empty")
	}
	validatePort("ROUTEWISE_PORT", cfg.Port, &errs)
	validatePositive("ROUTEWISE_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)

	if cfg.OSRMBaseURL != "" {
		if u, err := url.Parse(cfg.OSRMBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("ROUTEWISE_OSRM_URL: invalid URL %q (must be http or https)", cfg.OSRMBaseURL))
		}
	}
	validatePositive("ROUTEWISE_OSRM_MAX_LOCATIONS", cfg.OSRMMaxLocations, &errs)
	if cfg.MatrixTimeout <= 0 {
		errs = append(errs, "ROUTEWISE_MATRIX_TIMEOUT must be positive")
	}
	if cfg.MatrixCacheTTL < time.Hour {
		errs = append(errs, "ROUTEWISE_MATRIX_CACHE_TTL must be at least 1h")
	}
	validatePositive("ROUTEWISE_MATRIX_CACHE_MAX_MB", cfg.MatrixCacheMaxMB, &errs)
	if cfg.FallbackSpeedMPH <= 0 {
		errs = append(errs, "ROUTEWISE_FALLBACK_SPEED_MPH must be positive")
	}

	if cfg.QuickTimeLimit <= 0 {
		errs = append(errs, "ROUTEWISE_SOLVE_QUICK_LIMIT must be positive")
	}
	if cfg.ThoroughTimeLimit <= 0 {
		errs = append(errs, "ROUTEWISE_SOLVE_THOROUGH_LIMIT must be positive")
	}
	if cfg.SolverWorkers < 0 {
		errs = append(errs, fmt.Sprintf("ROUTEWISE_SOLVER_WORKERS: must be >= 0 (0 means GOMAXPROCS), got %d", cfg.SolverWorkers))
	}

	if _, err := cron.ParseStandard(cfg.TempPurgeSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("ROUTEWISE_TEMP_PURGE_SCHEDULE: invalid cron expression %q: %v", cfg.TempPurgeSchedule, err))
	}
	validatePositive("ROUTEWISE_ROUTE_RETENTION_DAYS", cfg.RouteRetentionDays, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envFloat(key string, defaultVal float64, errs *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid number %q", key, v))
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
