// Package main is the entry point for the juridoc back end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaelDom/TestJuridoc/internal/config"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg, configPath, err := loadAndValidateConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Observability.Logging, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting juridoc",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	if err := run(ctx, cfg, configPath, logger); err != nil {
		logger.Error("juridoc failed", observability.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}

	_ = logger.Sync()
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("JURIDOC_CONFIG_PATH", ""),
		"Path to configuration file; built-in defaults are used when empty")
	logLevel := flag.String("log-level", getEnvOrDefault("JURIDOC_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration")
	logFormat := flag.String("log-format", getEnvOrDefault("JURIDOC_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("juridoc version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger builds the logger from the configuration and the flag
// overrides and installs it as the global logger.
func initLogger(cfg config.LoggingConfig, flags cliFlags) (observability.Logger, error) {
	logCfg := observability.DefaultLogConfig()
	if cfg.Level != "" {
		logCfg.Level = cfg.Level
	}
	if cfg.Format != "" {
		logCfg.Format = cfg.Format
	}
	if cfg.Output != "" {
		logCfg.Output = cfg.Output
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	observability.SetGlobalLogger(logger)
	return logger, nil
}

// loadAndValidateConfig loads the configuration at path, or the defaults
// when path is empty. It returns the resolved path.
func loadAndValidateConfig(path string) (*config.Config, string, error) {
	if path == "" {
		return config.DefaultConfig(), "", nil
	}

	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfig(resolved)
	if err != nil {
		return nil, "", err
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, resolved, nil
}
