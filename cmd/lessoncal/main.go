package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lessoncal/internal/config"
	"lessoncal/internal/jobs"
	appLog "lessoncal/internal/log"
	"lessoncal/internal/schedule"
	"lessoncal/internal/store"
	"lessoncal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	debug      bool
}

func main() {
	flags := parseFlags()
	defer appLog.Sync()

	appLog.Info("lessoncal starting", "version", version)

	conf, err := config.Load(flags.configPath)
	switch {
	case err != nil && conf != nil:
		// Defaults are usable even when the first-run file could not be written.
		appLog.Warn("could not write default config", "config_path", flags.configPath, "err", err)
	case err != nil:
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to apply environment", err, "env_file", flags.envFile)
		os.Exit(1)
	}

	// CLI flags override config and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"log_level", conf.LogLevel,
		"week_start", conf.WeekStart,
		"store_driver", conf.Store.Driver,
		"confirm_ttl", conf.ConfirmTTL,
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf); err != nil {
		appLog.Error("lessoncal stopped with error", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("lessoncal exiting")
}

func run(ctx context.Context, conf *config.Config) error {
	st, err := store.Open(ctx, conf.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("failed to close store", err)
		}
	}()

	book, err := schedule.Open(ctx, st, schedule.WithConfirmTTL(conf.ConfirmTTL))
	if err != nil {
		return err
	}

	runner, err := jobs.New(st, book, conf.Jobs)
	if err != nil {
		return err
	}
	runner.Start()
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		runner.Stop(stopCtx)
	}()

	if err := web.StartServer(ctx, conf, book); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/lessoncal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional dotenv file with LESSONCAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
