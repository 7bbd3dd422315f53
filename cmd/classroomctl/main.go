// Command classroomctl administers a ClassroomHub database from the shell:
// migrations, admin grants, the classroom registry and backups.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"classroomhub/internal/config"
	"classroomhub/internal/database"
	"classroomhub/internal/logger"
	"classroomhub/internal/security"
	"classroomhub/internal/service"
)

const (
	Version = "0.1.0"
	appName = "classroomctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs. It is opened lazily so that
// "version" and "help" work without a database.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *database.DB
	auth   *service.AuthService
	backup *service.BackupService

	registry  *service.RegistryService
	guardians *service.GuardianService
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, "console", appName)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Options{
		Type: cfg.DatabaseType,
		Path: cfg.DatabasePath,
		URL:  cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}

	// Run migrations to ensure schema is up to date
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		log.Info("migrations applied", zap.Strings("files", applied))
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		auth:      service.NewAuthService(db, security.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL), cfg.SessionDuration),
		backup:    service.NewBackupService(db, log),
		registry:  service.NewRegistryService(db),
		guardians: service.NewGuardianService(db),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.log.Sync()
}

// withApp adapts a subcommand body to cobra's RunE
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Administer a ClassroomHub installation",
		Long: `classroomctl runs administrative tasks against the database configured
by the same environment variables and .env file as the server.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		migrateCmd(),
		setAdminCmd(),
		deleteUserCmd(),
		cleanupSessionsCmd(),
		createClassroomCmd(),
		enrollChildCmd(),
		linkGuardianCmd(),
		exportCmd(),
		importCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
