package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root service configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" validate:"required"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Health  HealthConfig  `yaml:"health"`
}

// ServiceConfig identifies the service.
type ServiceConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Environment string `yaml:"environment" validate:"omitempty,oneof=development staging production"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port" validate:"omitempty,min=1,max=65535"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logger settings. An empty level is resolved from
// the service environment (production gets info, everything else
// debug).
type LoggingConfig struct {
	Level            string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format           string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output           string `yaml:"output"`
	DisableBuffering bool   `yaml:"disableBuffering"`
}

// HealthConfig holds readiness dependency settings.
type HealthConfig struct {
	CacheAddr    string             `yaml:"cacheAddr"`
	ProbeTimeout Duration           `yaml:"probeTimeout"`
	Dependencies []DependencyConfig `yaml:"dependencies" validate:"omitempty,dive"`
}

// DependencyConfig describes a single readiness dependency.
type DependencyConfig struct {
	Name    string   `yaml:"name" validate:"required"`
	Type    string   `yaml:"type" validate:"required,oneof=http tcp"`
	Target  string   `yaml:"target" validate:"required"`
	Timeout Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "reqlog",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Logging: LoggingConfig{
			Format: "json",
			Output: "stdout",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration against its validation tags.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
