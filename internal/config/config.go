// Package config manages configuration for the glidepath CLI.
// It uses Viper for unified configuration management from files and
// environment variables, validated with documented bounds.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/glidepath/glidepath/internal/constants"
	orcherrors "github.com/glidepath/glidepath/internal/errors"
)

// Config is the top-level configuration: global settings plus the environment
// table. Environment differences (sizing, topology, toggles) are data in this
// table; there is exactly one code path consuming it.
type Config struct {
	LogLevel     string                  `mapstructure:"log_level" yaml:"log_level"`
	Environments map[string]*Environment `mapstructure:"environments" yaml:"environments" validate:"required,dive"`
}

// Topology values for Environment.Topology.
const (
	TopologyZonal    = "zonal"
	TopologyRegional = "regional"
)

// Environment describes one deployment target.
type Environment struct {
	// Name is the environment's key in the config table, filled in at load.
	Name string `mapstructure:"-" yaml:"-"`

	Project string `mapstructure:"project" yaml:"project" validate:"required"`
	Region  string `mapstructure:"region" yaml:"region" validate:"required"`
	Zone    string `mapstructure:"zone" yaml:"zone"`
	// Topology selects zonal or regional clustering. Always explicit, never
	// inferred from node counts.
	Topology string `mapstructure:"topology" yaml:"topology" validate:"required,oneof=zonal regional"`
	Domain   string `mapstructure:"domain" yaml:"domain" validate:"omitempty,fqdn"`
	// Production tightens the destroy confirmation phrase.
	Production bool `mapstructure:"production" yaml:"production"`

	NetworkCIDR string `mapstructure:"network_cidr" yaml:"network_cidr" validate:"required,cidrv4"`
	MachineType string `mapstructure:"machine_type" yaml:"machine_type" validate:"required"`
	NodeCount   int    `mapstructure:"node_count" yaml:"node_count" validate:"min=1,max=10"`

	Sizing Sizing `mapstructure:"sizing" yaml:"sizing"`
}

// Sizing carries the application resource parameters with their documented
// bounds.
type Sizing struct {
	Replicas      int    `mapstructure:"replicas" yaml:"replicas" validate:"min=1,max=5"`
	DiskSizeGB    int    `mapstructure:"disk_size_gb" yaml:"disk_size_gb" validate:"min=20,max=500"`
	DBDiskSizeGB  int    `mapstructure:"db_disk_size_gb" yaml:"db_disk_size_gb" validate:"min=20,max=500"`
	CPURequest    string `mapstructure:"cpu_request" yaml:"cpu_request"`
	MemoryRequest string `mapstructure:"memory_request" yaml:"memory_request"`
}

var validate = validator.New()

// Load loads the configuration using Viper from
// ~/.glidepath/config.yaml, with GLIDEPATH_-prefixed environment variables
// taking precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := loadConfigFile(v); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GLIDEPATH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyEnvironmentDefaults(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, orcherrors.ErrConfigInvalid("config validation failed", err)
	}
	for name, env := range cfg.Environments {
		env.Name = name
		if env.Topology == TopologyZonal && env.Zone == "" {
			return nil, orcherrors.ErrConfigInvalid(
				fmt.Sprintf("environment %q uses zonal topology but sets no zone", name), nil)
		}
	}
	return &cfg, nil
}

// Environment returns the named environment or an error listing the known
// ones.
func (c *Config) Environment(name string) (*Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return nil, orcherrors.ErrConfigInvalid(
			fmt.Sprintf("unknown environment %q (known: %s)", name, strings.Join(c.EnvironmentNames(), ", ")), nil)
	}
	return env, nil
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Location returns the cluster location: the zone for zonal topology, the
// region for regional.
func (e *Environment) Location() string {
	if e.Topology == TopologyZonal {
		return e.Zone
	}
	return e.Region
}

// ConfirmPhrase returns the phrase a user must type to destroy stateful
// resources in this environment.
func (e *Environment) ConfirmPhrase() string {
	if e.Production {
		return constants.ConfirmPhraseProduction
	}
	return constants.ConfirmPhrase
}

// GetLogLevel parses the configured log level, defaulting to INFO.
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
}

// applyEnvironmentDefaults fills documented defaults so config files only
// state what differs.
func applyEnvironmentDefaults(cfg *Config) {
	for _, env := range cfg.Environments {
		if env.MachineType == "" {
			env.MachineType = "e2-standard-2"
		}
		if env.NodeCount == 0 {
			env.NodeCount = 1
		}
		if env.NetworkCIDR == "" {
			env.NetworkCIDR = "10.10.0.0/16"
		}
		if env.Sizing.Replicas == 0 {
			env.Sizing.Replicas = 1
		}
		if env.Sizing.DiskSizeGB == 0 {
			env.Sizing.DiskSizeGB = 20
		}
		if env.Sizing.DBDiskSizeGB == 0 {
			env.Sizing.DBDiskSizeGB = 20
		}
		if env.Sizing.CPURequest == "" {
			env.Sizing.CPURequest = "500m"
		}
		if env.Sizing.MemoryRequest == "" {
			env.Sizing.MemoryRequest = "512Mi"
		}
	}
}

func loadConfigFile(v *viper.Viper) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil // no home directory, env vars only
	}
	v.SetConfigFile(constants.ConfigFilePath(homeDir))
	v.SetConfigType("yaml")
	return v.ReadInConfig()
}
