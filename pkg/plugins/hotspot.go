package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/cache"
	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/plugincenter"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// sharedHotspotCache backs every hotspot plugin's scheduled refresh.
// Grounded on the Smart Cache's documented hotspot TTL (~6h, §4.1); the
// scheduler owns no state of its own, only the cache does (§4.5).
var sharedHotspotCache = cache.New(cache.NewMapStore())

const hotspotTTL = 6 * time.Hour

// hotspotPlatforms is the closed set of platform hotspot steps this
// build wires; each gets its own "<platform>_hotspot" step name per the
// §types.IsHotspotStep "_hotspot" suffix convention.
var hotspotPlatforms = []string{"bilibili", "douyin", "xiaohongshu"}

func init() {
	for _, platform := range hotspotPlatforms {
		p := platform
		name := p + "_hotspot"
		plugincenter.RegisterPluginFactory(name, func(center *plugincenter.Center, cfg *config.Config) error {
			return registerHotspot(center, cfg, name, p)
		})
	}
}

// registerHotspot registers one platform's hotspot plugin as a
// scheduled plugin (§4.5): refresh calls the Search port and writes the
// formatted brief to the Smart Cache; GetOutput only ever reads that
// cache, so a refresh failure (E5) leaves the prior cached brief in
// place — the plan still completes using the stale-but-present value,
// or the documented fallback string if nothing was ever cached.
func registerHotspot(center *plugincenter.Center, _ *config.Config, stepName, platform string) error {
	key := cache.BuildFingerprintKey("plugin:strategy:hotspot:", map[string]interface{}{"platform": platform})

	refresh := func(ctx context.Context) error {
		results, err := sharedFacade.Search.Search(ctx, platform+" 热点", 5, "hotspot")
		sharedFacade.MarkFailed("search:"+platform, err)
		if err != nil {
			return fmt.Errorf("hotspot refresh(%s): %w", platform, err)
		}
		brief := sharedFacade.Search.FormatResultsAsContext(results)
		sharedHotspotCache.Set(key, brief, hotspotTTL)
		return nil
	}

	return center.RegisterPlugin(plugincenter.Descriptor{
		Name: stepName,
		Kind: types.PluginSchedule,
		GetOutput: func(ctx context.Context, _ string, _ map[string]interface{}) (map[string]interface{}, error) {
			var brief string
			if !sharedHotspotCache.Get(key, &brief) || strings.TrimSpace(brief) == "" {
				// §8 scenario E5: no cache yet (or a refresh has never
				// succeeded) falls back to a documented placeholder
				// rather than failing the step.
				brief = fmt.Sprintf("%s 热点暂无可用简报，建议稍后重试。", platform)
			}
			return map[string]interface{}{
				"analysis": map[string]interface{}{stepName: brief},
			}, nil
		},
		Refresh:        refresh,
		ScheduleConfig: types.ScheduleConfig{IntervalHours: 6},
	})
}
