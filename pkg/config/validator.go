package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// validateConfig runs struct-tag validation over every provider/role and
// cross-references each role's provider against the provider table.
func validateConfig(cfg *Config) error {
	for name, prov := range cfg.LLMRegistry.providers {
		if err := structValidator.Struct(prov); err != nil {
			return NewValidationError("llm_provider", name, "", err)
		}
	}
	for name, role := range cfg.LLMRegistry.roles {
		if err := structValidator.Struct(role); err != nil {
			return NewValidationError("llm_role", name, "", err)
		}
		if _, ok := cfg.LLMRegistry.providers[role.Provider]; !ok {
			return NewValidationError("llm_role", name, "provider",
				fmt.Errorf("%w: %s", ErrInvalidReference, role.Provider))
		}
	}
	for taskType, plugins := range cfg.TaskPlugins.GetAll() {
		if len(plugins) == 0 {
			return NewValidationError("task_plugins", taskType, "plugins", ErrMissingRequiredField)
		}
	}
	return nil
}
