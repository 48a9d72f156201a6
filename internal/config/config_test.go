package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
)

func validEnvironment() *Environment {
	return &Environment{
		Project:     "acme-workflows-dev",
		Region:      "europe-west1",
		Zone:        "europe-west1-b",
		Topology:    "zonal",
		Domain:      "n8n.dev.example.com",
		NetworkCIDR: "10.10.0.0/16",
		MachineType: "e2-standard-2",
		NodeCount:   2,
		Sizing: Sizing{
			Replicas:      1,
			DiskSizeGB:    20,
			DBDiskSizeGB:  50,
			CPURequest:    "500m",
			MemoryRequest: "512Mi",
		},
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Environment)
		wantErr bool
	}{
		{
			name:   "valid environment",
			mutate: func(e *Environment) {},
		},
		{
			name:    "replicas above bound",
			mutate:  func(e *Environment) { e.Sizing.Replicas = 6 },
			wantErr: true,
		},
		{
			name:   "replicas at upper bound",
			mutate: func(e *Environment) { e.Sizing.Replicas = 5 },
		},
		{
			name:    "disk below bound",
			mutate:  func(e *Environment) { e.Sizing.DiskSizeGB = 10 },
			wantErr: true,
		},
		{
			name:   "disk at upper bound",
			mutate: func(e *Environment) { e.Sizing.DiskSizeGB = 500 },
		},
		{
			name:    "disk above bound",
			mutate:  func(e *Environment) { e.Sizing.DiskSizeGB = 501 },
			wantErr: true,
		},
		{
			name:    "invalid topology",
			mutate:  func(e *Environment) { e.Topology = "multizone" },
			wantErr: true,
		},
		{
			name:    "invalid domain",
			mutate:  func(e *Environment) { e.Domain = "not a domain" },
			wantErr: true,
		},
		{
			name:    "invalid cidr",
			mutate:  func(e *Environment) { e.NetworkCIDR = "10.10.0.0" },
			wantErr: true,
		},
		{
			name:    "missing project",
			mutate:  func(e *Environment) { e.Project = "" },
			wantErr: true,
		},
		{
			name:    "node count above bound",
			mutate:  func(e *Environment) { e.NodeCount = 11 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvironment()
			tt.mutate(env)
			cfg := &Config{Environments: map[string]*Environment{"dev": env}}
			err := validate.Struct(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvironment_Location(t *testing.T) {
	env := validEnvironment()
	assert.Equal(t, "europe-west1-b", env.Location())

	env.Topology = "regional"
	assert.Equal(t, "europe-west1", env.Location())
}

func TestEnvironment_ConfirmPhrase(t *testing.T) {
	env := validEnvironment()
	assert.Equal(t, "destroy", env.ConfirmPhrase())

	env.Production = true
	assert.Equal(t, "destroy-production-data", env.ConfirmPhrase())
}

func TestConfig_Environment(t *testing.T) {
	cfg := &Config{Environments: map[string]*Environment{
		"dev":     validEnvironment(),
		"staging": validEnvironment(),
	}}

	env, err := cfg.Environment("dev")
	require.NoError(t, err)
	assert.Equal(t, "acme-workflows-dev", env.Project)

	_, err = cfg.Environment("prod")
	require.Error(t, err)
	assert.Equal(t, orcherrors.CodeConfigInvalid, orcherrors.GetCode(err))
	assert.Contains(t, err.Error(), "dev, staging")
}

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{name: "DEBUG level", logLevel: "DEBUG", expected: slog.LevelDebug},
		{name: "INFO level", logLevel: "INFO", expected: slog.LevelInfo},
		{name: "WARN level", logLevel: "WARN", expected: slog.LevelWarn},
		{name: "ERROR level", logLevel: "ERROR", expected: slog.LevelError},
		{name: "invalid level defaults to INFO", logLevel: "INVALID", expected: slog.LevelInfo},
		{name: "empty string defaults to INFO", logLevel: "", expected: slog.LevelInfo},
		{name: "lowercase level", logLevel: "debug", expected: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetLogLevel())
		})
	}
}

func TestApplyEnvironmentDefaults(t *testing.T) {
	cfg := &Config{Environments: map[string]*Environment{
		"dev": {Project: "p", Region: "europe-west1", Zone: "europe-west1-b", Topology: "zonal"},
	}}
	applyEnvironmentDefaults(cfg)

	env := cfg.Environments["dev"]
	assert.Equal(t, "e2-standard-2", env.MachineType)
	assert.Equal(t, 1, env.NodeCount)
	assert.Equal(t, 1, env.Sizing.Replicas)
	assert.Equal(t, 20, env.Sizing.DiskSizeGB)
	assert.NoError(t, validate.Struct(cfg))
}
