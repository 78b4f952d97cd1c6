package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the user context service.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where userctx stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the service
	Version string
	// MachineID identifies this workstation to the authentication collaborator
	MachineID string
	// SessionTTL is the lifetime of sessions issued by the local authenticator
	SessionTTL time.Duration
	// SessionNearExpiry is the remaining-lifetime threshold that triggers a session refresh
	SessionNearExpiry time.Duration
	// ContextCacheTTL is the TTL for entries written to the external context cache tier
	ContextCacheTTL time.Duration
	// StoreCacheTTL is the TTL for the store's user and preference caches
	StoreCacheTTL time.Duration
	// SessionSecret signs locally issued session tokens
	SessionSecret string
	// RefreshInterval is the period of the background context refresh loop
	RefreshInterval time.Duration
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv parses a duration environment variable, falling back to the
// default on absence or parse failure.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		// Accept plain minute counts as well, e.g. USERCTX_SESSION_TTL=480.
		if minutes, convErr := strconv.Atoi(value); convErr == nil {
			return time.Duration(minutes) * time.Minute
		}
		slog.Warn("invalid duration in environment, using default",
			slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return d
}

// FromEnv loads configuration from USERCTX_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("USERCTX_MODE", "demo")
	p.Data = os.Getenv("USERCTX_DATA")
	p.DSN = os.Getenv("USERCTX_DSN")
	p.Driver = getEnvOrDefault("USERCTX_DRIVER", "sqlite")
	p.MachineID = getEnvOrDefault("USERCTX_MACHINE_ID", defaultMachineID())
	p.SessionSecret = os.Getenv("USERCTX_SESSION_SECRET")
	p.SessionTTL = getDurationEnv("USERCTX_SESSION_TTL", 8*time.Hour)
	p.SessionNearExpiry = getDurationEnv("USERCTX_SESSION_NEAR_EXPIRY", 30*time.Minute)
	p.ContextCacheTTL = getDurationEnv("USERCTX_CONTEXT_CACHE_TTL", 30*time.Minute)
	p.StoreCacheTTL = getDurationEnv("USERCTX_STORE_CACHE_TTL", 10*time.Minute)
	p.RefreshInterval = getDurationEnv("USERCTX_REFRESH_INTERVAL", 5*time.Minute)
}

func defaultMachineID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/userctx"
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("userctx_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.SessionTTL <= 0 {
		p.SessionTTL = 8 * time.Hour
	}
	if p.SessionNearExpiry <= 0 {
		p.SessionNearExpiry = 30 * time.Minute
	}
	if p.ContextCacheTTL <= 0 {
		p.ContextCacheTTL = 30 * time.Minute
	}
	if p.StoreCacheTTL <= 0 {
		p.StoreCacheTTL = 10 * time.Minute
	}

	return nil
}
