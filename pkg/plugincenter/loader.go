package plugincenter

import (
	"log/slog"

	"github.com/marketing-ai/thinkengine/pkg/config"
)

// RegisterFunc registers one plugin into center, using cfg for any
// provider/credential lookups the plugin needs. It mirrors the
// source's register_fn(center, config) call signature.
type RegisterFunc func(center *Center, cfg *config.Config) error

// registry is the static (name → RegisterFunc) table standing in for
// the source's dynamic import-by-string plugin loader (§9 open
// question). Real deployments call RegisterPluginFactory from an
// init() in the package implementing each plugin.
var registry = map[string]RegisterFunc{}

// RegisterPluginFactory adds name to the compile-time loader table.
// Intended to be called from an init() function of the package that
// implements the plugin.
func RegisterPluginFactory(name string, fn RegisterFunc) {
	registry[name] = fn
}

// LoadPluginsForBrain resolves each name in pluginList against the
// compile-time registry and calls its RegisterFunc against center. A
// load failure — unknown name, or the RegisterFunc itself erroring —
// logs and skips that plugin; partial registration is acceptable
// (§4.5 Loader).
func LoadPluginsForBrain(center *Center, cfg *config.Config, pluginList []string) {
	log := slog.With("component", "plugin_loader", "brain", center.brain)
	for _, name := range pluginList {
		fn, ok := registry[name]
		if !ok {
			log.Warn("no registered factory for plugin, skipping", "plugin", name)
			continue
		}
		if err := fn(center, cfg); err != nil {
			log.Warn("plugin registration failed, skipping", "plugin", name, "error", err)
		}
	}
}
