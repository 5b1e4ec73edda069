package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ThinkEngineYAMLConfig is the top-level shape of thinkengine.yaml.
type ThinkEngineYAMLConfig struct {
	LLMProviders map[string]ProviderConfig `yaml:"llm_providers"`
	LLMRoles     map[string]RoleConfig     `yaml:"llm_roles"`
	TaskPlugins  map[string][]string       `yaml:"task_plugins"`
	BrainPlugins map[string][]string       `yaml:"brain_plugins"`
	Defaults     *Defaults                 `yaml:"defaults"`
}

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. Steps:
//  1. Load thinkengine.yaml from configDir (missing file is not fatal —
//     the engine falls back to built-ins, matching a from-scratch
//     deployment that hasn't written a config directory yet).
//  2. Expand environment variables.
//  3. Merge built-in + user-defined configuration (user overrides).
//  4. Build in-memory registries.
//  5. Validate.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized", "llm_roles", stats.LLMRoles, "task_types", stats.TaskTypes)
	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	user, err := loadYAML(configDir)
	if err != nil {
		return nil, err
	}

	builtin := GetBuiltinConfig()

	providers := mergeProviders(builtin.Providers, user.LLMProviders)
	roles := mergeRoles(builtin.Roles, user.LLMRoles)
	taskPlugins := mergeTaskPlugins(builtin.TaskPlugins, user.TaskPlugins)
	brainPlugins := mergeBrainPlugins(builtin.BrainPlugins, user.BrainPlugins)

	defaults := applyDefaults(user.Defaults, DefaultDefaults())

	return &Config{
		configDir:    configDir,
		Defaults:     defaults,
		LLMRegistry:  NewLLMRegistry(providers, roles),
		TaskPlugins:  NewTaskPluginRegistry(taskPlugins),
		BrainPlugins: NewBrainPluginRegistry(brainPlugins),
	}, nil
}

// loadYAML reads thinkengine.yaml if present. A missing file yields an
// empty (not erroring) config so the engine can run on built-ins alone.
func loadYAML(configDir string) (*ThinkEngineYAMLConfig, error) {
	cfg := &ThinkEngineYAMLConfig{
		LLMProviders: map[string]ProviderConfig{},
		LLMRoles:     map[string]RoleConfig{},
		TaskPlugins:  map[string][]string{},
		BrainPlugins: map[string][]string{},
	}

	path := filepath.Join(configDir, "thinkengine.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return cfg, nil
}
