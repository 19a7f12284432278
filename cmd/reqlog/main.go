// Package main is the entry point for the reqlog reference server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/obsware/reqlog/internal/config"
	"github.com/obsware/reqlog/internal/logging"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const defaultConfigPath = "configs/reqlog.yaml"

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

	cfg := loadConfig(flags)
	logger := initLogger(cfg, flags)

	app := newApplication(cfg, logger)
	app.run(flags.configPath)
}

// parseFlags parses command line flags with environment fallbacks.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("REQLOG_CONFIG", defaultConfigPath),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("REQLOG_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	logFormat := flag.String("log-format", getEnvOrDefault("REQLOG_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
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
	fmt.Printf("reqlog version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadConfig loads and validates the configuration. A missing file at
// the default path falls back to the built-in defaults.
func loadConfig(flags cliFlags) *config.Config {
	if flags.configPath == defaultConfigPath {
		if _, err := os.Stat(flags.configPath); os.IsNotExist(err) {
			return config.DefaultConfig()
		}
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// initLogger builds the logger from configuration, letting flags
// override the file, and installs it as the global logger.
func initLogger(cfg *config.Config, flags cliFlags) *logging.Logger {
	logConfig := &logging.Config{
		Level:            logging.Level(cfg.Logging.Level),
		Format:           logging.Format(cfg.Logging.Format),
		Output:           cfg.Logging.Output,
		Environment:      cfg.Service.Environment,
		ServiceName:      cfg.Service.Name,
		ServiceVersion:   version,
		DisableBuffering: cfg.Logging.DisableBuffering,
	}
	if flags.logLevel != "" {
		logConfig.Level = logging.Level(flags.logLevel)
	}
	if flags.logFormat != "" {
		logConfig.Format = logging.Format(flags.logFormat)
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logging.SetGlobalLogger(logger)
	return logger
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
