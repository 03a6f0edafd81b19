package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	pkgcfg "github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	adminEmail    string
	adminPassword string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Creates or updates the database schema. With --admin-email and
--admin-password an administrator account is created or promoted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := logging.New(os.Getenv("LOG_LEVEL"))
		config.LoadDotEnv(bootLogger)
		cfg := config.Load()
		pkgcfg.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

		logger := logging.New(cfg.LogLevel).With("cmd", "migrate")
		slog.SetDefault(logger)

		ctx, cancel := context.WithTimeout(logging.IntoContext(cmd.Context(), logger), 2*time.Minute)
		defer cancel()

		db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() { _ = pkgdb.Close(db) }()

		if err := models.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema_migrated")

		if adminEmail == "" && adminPassword == "" {
			return nil
		}
		identity := &service.IdentityService{Repo: repo.New(db)}
		u, err := identity.EnsureAdmin(ctx, adminEmail, adminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		logger.Info("admin_ready", "user_id", u.ID, "email", u.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&adminEmail, "admin-email", "", "email of the administrator account to ensure")
	migrateCmd.Flags().StringVar(&adminPassword, "admin-password", "", "password to set on the administrator account")
}
