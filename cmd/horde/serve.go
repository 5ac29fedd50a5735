// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/horde/embedded"
	"github.com/teradata-labs/horde/internal/log"
	"github.com/teradata-labs/horde/pkg/audit"
	"github.com/teradata-labs/horde/pkg/costs"
	"github.com/teradata-labs/horde/pkg/executor"
	"github.com/teradata-labs/horde/pkg/guild"
	"github.com/teradata-labs/horde/pkg/history"
	"github.com/teradata-labs/horde/pkg/llm/factory"
	"github.com/teradata-labs/horde/pkg/orchestration"
	"github.com/teradata-labs/horde/pkg/scheduler"
	"github.com/teradata-labs/horde/pkg/server"
)

var (
	flagConfig  string
	flagGuilds  string
	flagHistory string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the horde HTTP server",
	Long: `Start the horde runtime and HTTP/WebSocket server.

The server will:
- Load the guild catalog (file or embedded default)
- Detect available LLM providers from the environment
- Open the task history store
- Listen for HTTP requests on PORT (default 3001)

Press Ctrl+C to gracefully shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagConfig, "config", "", "config file (default ./horde.yaml)")
	serveCmd.Flags().StringVar(&flagGuilds, "guilds", "", "guild catalog file (default ./guilds.yaml)")
	serveCmd.Flags().StringVar(&flagHistory, "history-db", "horde.db", "history database path")
	rootCmd.AddCommand(serveCmd)
}

func initConfig() error {
	viper.SetDefault("port", 3001)
	viper.SetDefault("api_rate_limit", 100)

	viper.AutomaticEnv()
	for _, key := range []string{
		"port", "auth_enabled", "jwt_secret",
		"dashboard_user", "dashboard_pass",
		"api_rate_limit", "audit_url",
	} {
		_ = viper.BindEnv(key)
	}

	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else {
		viper.SetConfigName("horde")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/horde")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func loadCatalog(logger *zap.Logger) (*guild.Catalog, error) {
	paths := []string{"guilds.yaml", "config/guilds.yaml"}
	if flagGuilds != "" {
		paths = []string{flagGuilds}
	}

	catalog, err := guild.Load(paths...)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("No guild catalog found on disk, using embedded default")
		return guild.LoadFromBytes(embedded.DefaultCatalog())
	}
	return catalog, err
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	logger := log.Init(true)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting horde", zap.String("version", rootCmd.Version))

	catalog, err := loadCatalog(logger)
	if err != nil {
		return fmt.Errorf("guild catalog: %w", err)
	}
	for _, warning := range catalog.Warnings() {
		logger.Warn("Catalog warning", zap.String("detail", warning))
	}
	logger.Info("Guild catalog loaded",
		zap.Int("guilds", len(catalog.Guilds())),
		zap.Int("agents", len(catalog.Agents())))

	detectCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	providers := factory.Detect(detectCtx, factoryConfig(logger))
	cancel()
	if len(providers) == 0 {
		return errors.New("no LLM providers available: configure an API key or start ollama")
	}

	store, err := history.Open(flagHistory)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := costs.NewTracker()
	sink := audit.NewSink(viper.GetString("audit_url"), logger)
	exec := executor.New(executor.Config{
		Catalog:   catalog,
		Providers: providers,
		Costs:     tracker,
		History:   store,
		Audit:     sink,
		Logger:    logger,
	})

	runtime := &server.Runtime{
		Catalog:   catalog,
		Providers: providers,
		Executor:  exec,
		Costs:     tracker,
		History:   store,
		Plans:     orchestration.NewManager(),
	}
	runtime.Steps = orchestration.NewScheduler(server.NewStepRunner(exec), logger, nil)

	cron := scheduler.New(runtime, logger)
	var schedules []scheduler.Schedule
	if err := viper.UnmarshalKey("schedules", &schedules); err != nil {
		return fmt.Errorf("invalid schedules config: %w", err)
	}
	for _, sched := range schedules {
		if err := cron.Register(sched); err != nil {
			return err
		}
	}
	cron.Start()
	defer cron.Stop()

	srv := server.New(runtime, server.Config{
		Port:               viper.GetInt("port"),
		AuthEnabled:        viper.GetBool("auth_enabled"),
		JWTSecret:          viper.GetString("jwt_secret"),
		DashboardUser:      viper.GetString("dashboard_user"),
		DashboardPass:      viper.GetString("dashboard_pass"),
		RateLimitPerMinute: viper.GetInt("api_rate_limit"),
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func factoryConfig(logger *zap.Logger) factory.Config {
	cfg := factory.ConfigFromEnv()
	cfg.Logger = logger
	return cfg
}
