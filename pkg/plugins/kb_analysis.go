package plugins

import (
	"context"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/plugincenter"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

func init() {
	plugincenter.RegisterPluginFactory("kb_analysis", registerKBAnalysis)
}

// registerKBAnalysis registers a realtime analysis plugin that
// retrieves knowledge-base passages relevant to the turn's topic and
// contributes them as analysis["kb_context"] (lifted by the Analysis
// sub-graph into MetaState.KBContext, §4.9).
func registerKBAnalysis(center *plugincenter.Center, _ *config.Config) error {
	return center.RegisterPlugin(plugincenter.Descriptor{
		Name: "kb_analysis",
		Kind: types.PluginRealtime,
		GetOutput: func(ctx context.Context, _ string, callContext map[string]interface{}) (map[string]interface{}, error) {
			q := topic(callContext)
			docs, err := sharedFacade.Knowledge.Retrieve(ctx, q, 3)
			sharedFacade.MarkFailed("knowledge", err)
			if err != nil {
				return nil, err
			}
			if len(docs) == 0 {
				return map[string]interface{}{}, nil
			}
			return map[string]interface{}{
				"analysis": map[string]interface{}{
					"kb_context": strings.Join(docs, "\n"),
				},
			}, nil
		},
	})
}
