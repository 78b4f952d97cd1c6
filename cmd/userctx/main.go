package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/userctx/internal/profile"
	"github.com/hrygo/userctx/store"
	"github.com/hrygo/userctx/store/db"
	"github.com/hrygo/userctx/usercontext"
)

const greetingBanner = `
 _   _ ___  ___ _ __ ___| |___  __
| | | / __|/ _ \ '__/ __| __\ \/ /
| |_| \__ \  __/ |  | (__| |_ >  <
 \__,_|___/\___|_|   \___|\__/_/\_\
`

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "userctx",
		Short: "User context and preference service for a single workstation",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := run(ctx); err != nil {
				slog.Error("service failed", slog.String("error", err.Error()))
				cancel()
				os.Exit(1)
			}
		},
	}
)

func run(ctx context.Context) error {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	cache := usercontext.NewCache(usercontext.CacheConfig{TTL: instanceProfile.ContextCacheTTL})
	defer cache.Close()

	auth := usercontext.NewLocalAuthenticator(instanceProfile.SessionSecret, instanceProfile.SessionTTL)
	manager := usercontext.NewManager(cache, storeInstance, auth, usercontext.ManagerConfig{
		MachineID:         instanceProfile.MachineID,
		SessionNearExpiry: instanceProfile.SessionNearExpiry,
	})

	manager.Events().Subscribe("", func(_ context.Context, e usercontext.UserContextChangedEvent) {
		slog.Info("user context changed", slog.String("event_type", string(e.ChangeType)))
	})
	storeInstance.Events().Subscribe("", func(_ context.Context, e store.PreferenceChangedEvent) {
		slog.Info("preference changed",
			slog.Int64("user_id", int64(e.UserID)),
			slog.String("category", e.Category),
			slog.String("key", e.Key),
			slog.String("change_type", string(e.ChangeType)))
	})

	if instanceProfile.Mode == "demo" {
		if err := bootstrapDemoUser(ctx, storeInstance, manager); err != nil {
			return err
		}
	}

	fmt.Println(greetingBanner)
	slog.Info("userctx started",
		slog.String("mode", instanceProfile.Mode),
		slog.String("driver", instanceProfile.Driver),
		slog.String("machine_id", instanceProfile.MachineID),
		slog.String("version", instanceProfile.Version))

	refreshInterval := instanceProfile.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if result := manager.Refresh(ctx); !result.OK {
				slog.Warn("background refresh failed",
					slog.String("code", string(result.Code)),
					slog.String("message", result.Message))
			}
		case <-ctx.Done():
			slog.Info("shutting down")
			manager.Clear(context.Background())
			return nil
		}
	}
}

// bootstrapDemoUser makes the demo mode usable out of the box: one user with
// a couple of preferences, logged in immediately.
func bootstrapDemoUser(ctx context.Context, s *store.Store, manager *usercontext.Manager) error {
	username := "demo"
	user, err := s.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return fmt.Errorf("failed to look up demo user: %w", err)
	}
	if user == nil {
		user, err = s.CreateUser(ctx, &store.User{Username: username, Nickname: "Demo User"})
		if err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
		if err := store.SetValue(ctx, s, user.ID, "UI", "Theme", "system", "color scheme"); err != nil {
			return err
		}
		if err := store.SetValue(ctx, s, user.ID, "UI", "Language", "en", "display language"); err != nil {
			return err
		}
	}

	if result := manager.SwitchTo(ctx, user.ID); !result.OK {
		return fmt.Errorf("failed to activate demo user: [%s] %s", result.Code, result.Message)
	}
	return nil
}

func init() {
	viper.SetEnvPrefix("userctx")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the service, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cobra.OnInitialize(func() {
		instanceProfile = &profile.Profile{Version: "0.1.0"}
		instanceProfile.FromEnv()
		if mode := viper.GetString("mode"); mode != "" {
			instanceProfile.Mode = mode
		}
		if data := viper.GetString("data"); data != "" {
			instanceProfile.Data = data
		}
		if driver := viper.GetString("driver"); driver != "" {
			instanceProfile.Driver = driver
		}
		if dsn := viper.GetString("dsn"); dsn != "" {
			instanceProfile.DSN = dsn
		}
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid profile", slog.String("error", err.Error()))
			os.Exit(1)
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
