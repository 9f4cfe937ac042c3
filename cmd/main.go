package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/config"
	"github.com/Leganyst/legal-marketplace/internal/db"
	"github.com/Leganyst/legal-marketplace/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app: то, что нужно каждой подкоманде: конфиг, логгер и подключение к БД.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "legalaid",
		Short:         "Legal aid marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("LEGALAID_CONFIG"), "path to YAML config")

	load := func() (*app, error) {
		return bootstrap(configPath)
	}
	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newIdentityCmd(load),
		newTokenCmd(load),
	)
	return root
}

func bootstrap(configPath string) (*app, error) {
	// 1. Конфиг: дефолты, YAML, env.
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: gormDB}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func newMigrateCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			if err := db.Migrate(a.db, a.cfg.DB.Driver); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.logger.Info("schema is up to date", zap.String("driver", a.cfg.DB.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
