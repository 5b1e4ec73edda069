package plugins

import (
	"context"
	"fmt"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/plugincenter"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

func init() {
	plugincenter.RegisterPluginFactory("campaign_plan", registerCampaignPlan)
}

// registerCampaignPlan registers a generation-brain plugin that
// assembles a short "style pack" — a methodology cue, the active
// platform's content rules, and the best-matching reference sample —
// for the Generation sub-graph to fold into its prompt as aux context.
// Exercises Methodology, PlatformRules and SampleLibrary (§6) from one
// plugin, the way a real campaign-planning capability would combine
// several vendor lookups into one contribution.
func registerCampaignPlan(center *plugincenter.Center, _ *config.Config) error {
	return center.RegisterPlugin(plugincenter.Descriptor{
		Name: "campaign_plan",
		Kind: types.PluginRealtime,
		GetOutput: func(ctx context.Context, _ string, callContext map[string]interface{}) (map[string]interface{}, error) {
			platform := stringParam(callContext, "platform", "")

			docs, err := sharedFacade.Methodology.ListDocs(ctx, "framework")
			sharedFacade.MarkFailed("methodology", err)
			if err != nil {
				docs = nil
			}
			var methodologyCue string
			if len(docs) > 0 {
				methodologyCue = docs[0].Title + "：" + docs[0].Body
			}

			var ruleCue string
			if platform != "" {
				rules, err := sharedFacade.PlatformRules.GetRules(ctx, platform)
				sharedFacade.MarkFailed("platform_rules", err)
				if err == nil {
					ruleCue = fmt.Sprintf("标题不超过 %d 字，避免使用：%v", rules.TitleMaxLen, rules.SensitiveWords)
				}
			}

			samples, err := sharedFacade.SampleLibrary.Search(ctx, platform, "", 1, nil)
			sharedFacade.MarkFailed("sample_library", err)
			var sampleCue string
			if err == nil && len(samples) > 0 {
				sampleCue = "参考案例：" + samples[0].Title
			}

			return map[string]interface{}{
				"methodology_cue": methodologyCue,
				"rule_cue":        ruleCue,
				"sample_cue":      sampleCue,
			}, nil
		},
	})
}
