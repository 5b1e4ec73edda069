// Command thinkengine is the thin operational entrypoint (§10.8): it
// wires Smart Cache → Memory Service → LLM Router → Plugin Center(s) →
// Plugin Registry → Planner → Orchestrator → Narrative → Follow-up and
// exposes two gin routes, GET /health and POST /v1/think. Grounded on
// cmd/tarsy/main.go's flag/env/gin bootstrap; the full HTTP/front-end
// surface stays out of scope per spec.md §1.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/marketing-ai/thinkengine/pkg/cache"
	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/docbinding"
	"github.com/marketing-ai/thinkengine/pkg/evaluator"
	"github.com/marketing-ai/thinkengine/pkg/followup"
	"github.com/marketing-ai/thinkengine/pkg/intent"
	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/memory"
	"github.com/marketing-ai/thinkengine/pkg/narrative"
	"github.com/marketing-ai/thinkengine/pkg/orchestrator"
	"github.com/marketing-ai/thinkengine/pkg/planner"
	"github.com/marketing-ai/thinkengine/pkg/plugincenter"
	"github.com/marketing-ai/thinkengine/pkg/pluginbus"
	"github.com/marketing-ai/thinkengine/pkg/plugins" // self-registers kb_analysis, campaign_plan, *_hotspot via init()
	"github.com/marketing-ai/thinkengine/pkg/pluginregistry"
	"github.com/marketing-ai/thinkengine/pkg/ports"
	storagemem "github.com/marketing-ai/thinkengine/pkg/storage/memory"
	pgstorage "github.com/marketing-ai/thinkengine/pkg/storage/postgres"
	"github.com/marketing-ai/thinkengine/pkg/subgraph"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// app bundles every wired component the HTTP handlers need.
type app struct {
	cfg          *config.Config
	intent       *intent.Processor
	planner      *planner.Planner
	orchestrator *orchestrator.Orchestrator
	narrative    *narrative.Synthesizer
	followup     *followup.Advisor
	docs         *docbinding.Binder
	facade       *ports.Facade
	analysis     *plugincenter.Center
	generation   *plugincenter.Center
	strategy     *plugincenter.Center
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	log.Printf("starting thinkengine")
	log.Printf("http port: %s", httpPort)
	log.Printf("config directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	a := build(ctx, cfg)

	router := gin.Default()
	router.GET("/health", a.handleHealth)
	router.POST("/v1/think", a.handleThink)

	log.Printf("http server listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// build wires every component. Storage defaults to the in-memory
// adapters; setting DATABASE_URL switches to the pgx-backed adapters
// and runs pending migrations. Setting REDIS_URL switches the Smart
// Cache's backing store from an in-process map to Redis.
func build(ctx context.Context, cfg *config.Config) *app {
	profiles, interactions, _ := buildStores(ctx)

	smartCache := cache.New(buildCacheStore())
	memorySvc := memory.New(profiles, interactions, smartCache, cfg.Defaults.MemoryTTL)

	facade := ports.NewMockFacade()
	if apiKey := os.Getenv("BING_SEARCH_API_KEY"); apiKey != "" {
		facade.Search = ports.NewBingSearch(apiKey, os.Getenv("BING_SEARCH_ENDPOINT"))
		log.Printf("bing search api key set, using real search adapter")
	}
	plugins.SetFacade(facade)

	bus := pluginbus.New(0)
	bus.Register(pluginbus.NewAuditLogger())

	factories := llm.DefaultFactories()
	router := llm.NewRouter(cfg.LLMRegistry, factories)

	analysisCenter := plugincenter.New("analysis")
	generationCenter := plugincenter.New("generation")
	strategyCenter := plugincenter.New("strategy")
	plugincenter.LoadPluginsForBrain(analysisCenter, cfg, cfg.BrainPlugins.PluginsFor("analysis"))
	plugincenter.LoadPluginsForBrain(generationCenter, cfg, cfg.BrainPlugins.PluginsFor("generation"))
	plugincenter.LoadPluginsForBrain(strategyCenter, cfg, cfg.BrainPlugins.PluginsFor("strategy"))
	strategyCenter.RunInitialRefresh(ctx)
	strategyCenter.StartScheduledTasks()

	analysisGraph := subgraph.NewAnalysis(analysisCenter, router, smartCache, cfg.Defaults.AnalysisTTL, cfg.Defaults.CapabilityTimeout)
	generationGraph := subgraph.NewGeneration(router, generationCenter)

	registry := pluginregistry.New()
	registry.InitPlugins(cfg)

	orch := orchestrator.New(orchestrator.Deps{
		WebSearch:  ports.NewWebSearchAdapter(facade),
		Memory:     memorySvc,
		Hotspots:   strategyCenter,
		Analysis:   analysisGraph,
		Generation: generationGraph,
		Evaluator:  evaluator.New(router),
		Registry:   registry,
		Bus:        bus,
	}, cfg.Defaults)

	return &app{
		cfg:          cfg,
		intent:       intent.New(router, bus),
		planner:      planner.New(router),
		orchestrator: orch,
		narrative:    narrative.New(router),
		followup:     followup.New(router),
		docs:         docbinding.New(docbinding.NewMemoryStore()),
		facade:       facade,
		analysis:     analysisCenter,
		generation:   generationCenter,
		strategy:     strategyCenter,
	}
}

func buildStores(ctx context.Context) (types.UserProfileStore, types.InteractionHistoryStore, types.SessionStore) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Printf("no DATABASE_URL set, using in-memory storage")
		return storagemem.NewProfileStore(), storagemem.NewInteractionStore(), storagemem.NewSessionStore()
	}

	if err := pgstorage.Migrate(dsn); err != nil {
		log.Fatalf("failed to run postgres migrations: %v", err)
	}
	pool, err := pgstorage.Open(ctx, pgstorage.Config{DSN: dsn})
	if err != nil {
		log.Fatalf("failed to open postgres pool: %v", err)
	}
	log.Printf("connected to postgres storage")
	return pool.Profiles(), pool.Interactions(), pool.Sessions()
}

func buildCacheStore() cache.Store {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Printf("no REDIS_URL set, using in-memory smart cache store")
		return cache.NewMapStore()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("failed to parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	log.Printf("connected to redis smart cache store")
	return cache.NewRedisStore(client, context.Background())
}

func (a *app) handleHealth(c *gin.Context) {
	stats := a.cfg.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"configuration": gin.H{
			"llm_roles":  stats.LLMRoles,
			"task_types": stats.TaskTypes,
		},
		"plugins": gin.H{
			"analysis":   a.analysis.ListPlugins(),
			"generation": a.generation.ListPlugins(),
			"strategy":   a.strategy.ListPlugins(),
		},
		"degraded_adapters": a.facade.FailedAdapters(),
	})
}

type thinkRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type thinkResponse struct {
	Narrative    string                    `json:"narrative"`
	Content      string                    `json:"content,omitempty"`
	Analysis     map[string]interface{}    `json:"analysis"`
	Evaluation   map[string]interface{}    `json:"evaluation,omitempty"`
	ThinkingLogs []types.ThinkingLogEntry  `json:"thinking_logs"`
	StepOutputs  []types.StepOutput        `json:"step_outputs"`
	Followup     followup.Suggestion       `json:"followup"`
}

// handleThink runs one full orchestrator invocation: classify intent,
// plan, execute, narrate, and propose a follow-up. Intents `command`
// and `casual_chat` short-circuit before the planner/orchestrator ever
// run (§4.7 scenarios E1/E4): a command is acknowledged directly, and a
// casual reply never incurs a plan.
func (a *app) handleThink(c *gin.Context) {
	var req thinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := c.Request.Context()
	processed := a.intent.Process(ctx, req.SessionID, req.UserID, req.Message, nil)

	switch processed.Intent {
	case types.IntentCommand:
		c.JSON(http.StatusOK, thinkResponse{
			Narrative: fmt.Sprintf("收到指令：/%s", processed.Command),
			Analysis:  map[string]interface{}{},
			Followup:  followup.Suggestion{},
		})
		return
	case types.IntentCasualChat:
		state := types.NewMetaState(req.SessionID, req.UserID)
		state.UserInput = req.Message
		c.JSON(http.StatusOK, thinkResponse{
			Narrative: a.narrative.Synthesize(ctx, state),
			Analysis:  map[string]interface{}{},
			Followup:  a.followup.Advise(ctx, state),
		})
		return
	}

	state := types.NewMetaState(req.SessionID, req.UserID)
	state.UserInput = req.Message

	plan := a.planner.Plan(ctx, processed, "")
	taskPlugins, err := a.cfg.TaskPlugins.PluginsFor(plan.TaskType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	state.AnalysisPlugins = taskPlugins
	state.GenerationPlugins = taskPlugins

	if err := a.orchestrator.Run(ctx, processed, plan, state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if docCtx := a.docs.GetSessionDocumentContext(ctx, req.SessionID, a.cfg.Defaults.MaxCharsPerDoc, a.cfg.Defaults.MaxTotalDocChars); docCtx != "" {
		state.MemoryContext = strings.TrimSpace(state.MemoryContext + "\n" + docCtx)
	}

	text := a.narrative.Synthesize(ctx, state)
	suggestion := a.followup.Advise(ctx, state)
	report := assembleReport(text, state)

	c.JSON(http.StatusOK, thinkResponse{
		Narrative:    text,
		Content:      report,
		Analysis:     state.Analysis,
		Evaluation:   state.Evaluation,
		ThinkingLogs: state.ThinkingLogs,
		StepOutputs:  state.StepOutputs,
		Followup:     suggestion,
	})
}

// assembleReport compiles Phase C's final report (§4.9): the thinking
// chain narration, the generated output, and — when an evaluation ran
// — a quality assessment section. Any section with nothing to show is
// omitted rather than left empty.
func assembleReport(narrativeText string, state *types.MetaState) string {
	var sb strings.Builder
	sb.WriteString("思维链执行过程\n")
	sb.WriteString(narrativeText)

	if state.Content != "" {
		sb.WriteString("\n\n最终输出\n")
		sb.WriteString(state.Content)
	}

	if overall, ok := state.Evaluation["overall_score"]; ok {
		sb.WriteString("\n\n质量评估\n")
		sb.WriteString(fmt.Sprintf("综合评分：%v/10", overall))
		if suggestions, ok := state.Evaluation["suggestions"].(string); ok && suggestions != "" {
			sb.WriteString("\n改进建议：" + suggestions)
		}
	}

	return sb.String()
}
