// Package config loads and validates the engine's static configuration:
// the LLM provider/role registry, the task→plugins table, the per-brain
// plugin load lists, and system-wide defaults (cache TTLs, capability
// timeout, fan-out bounds).
package config

// Config is the umbrella object returned by Initialize and threaded
// through the rest of the engine at startup.
type Config struct {
	configDir string

	Defaults            *Defaults
	LLMRegistry         *LLMRegistry
	TaskPlugins         *TaskPluginRegistry
	BrainPlugins        *BrainPluginRegistry
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// Stats summarizes the loaded configuration for startup logging.
type Stats struct {
	LLMRoles     int
	TaskTypes    int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		LLMRoles:  c.LLMRegistry.Len(),
		TaskTypes: c.TaskPlugins.Len(),
	}
}
