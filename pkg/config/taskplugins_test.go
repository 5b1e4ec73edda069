package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskPluginRegistry_FallsBackToDefault(t *testing.T) {
	reg := NewTaskPluginRegistry(map[string][]string{
		DefaultTaskType:    {"kb_analysis"},
		"campaign_or_copy": {"kb_analysis", "campaign_plan"},
	})

	plugins, err := reg.PluginsFor("campaign_or_copy")
	require.NoError(t, err)
	assert.Equal(t, []string{"kb_analysis", "campaign_plan"}, plugins)

	plugins, err = reg.PluginsFor("some_other_task")
	require.NoError(t, err)
	assert.Equal(t, []string{"kb_analysis"}, plugins)
}

func TestTaskPluginRegistry_NoDefault(t *testing.T) {
	reg := NewTaskPluginRegistry(map[string][]string{"campaign_or_copy": {"x"}})
	_, err := reg.PluginsFor("nonexistent")
	require.ErrorIs(t, err, ErrTaskPluginsNotFound)
}

func TestTaskPluginRegistry_DefensiveCopy(t *testing.T) {
	src := map[string][]string{"a": {"x", "y"}}
	reg := NewTaskPluginRegistry(src)
	src["a"][0] = "mutated"
	plugins, err := reg.PluginsFor("a")
	require.NoError(t, err)
	assert.Equal(t, "x", plugins[0])
}
