package config

// mergeProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in providers
// with the same name.
func mergeProviders(builtin, user map[string]ProviderConfig) map[string]ProviderConfig {
	result := make(map[string]ProviderConfig, len(builtin)+len(user))
	for k, v := range builtin {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// mergeRoles merges built-in and user-defined LLM role configurations.
func mergeRoles(builtin, user map[string]RoleConfig) map[string]RoleConfig {
	result := make(map[string]RoleConfig, len(builtin)+len(user))
	for k, v := range builtin {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// mergeTaskPlugins merges built-in and user-defined task→plugins
// entries. A user entry for a task type replaces the built-in list
// wholesale rather than appending — same override semantics as the
// teacher's mergeChains.
func mergeTaskPlugins(builtin, user map[string][]string) map[string][]string {
	result := make(map[string][]string, len(builtin)+len(user))
	for k, v := range builtin {
		result[k] = append([]string(nil), v...)
	}
	for k, v := range user {
		result[k] = append([]string(nil), v...)
	}
	return result
}

// mergeBrainPlugins merges built-in and user-defined per-brain plugin
// load lists, same override semantics as mergeTaskPlugins.
func mergeBrainPlugins(builtin, user map[string][]string) map[string][]string {
	return mergeTaskPlugins(builtin, user)
}
