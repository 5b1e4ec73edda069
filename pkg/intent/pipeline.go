package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// LLMInvoker is the narrow surface the pipeline needs from the LLM
// Router, scoped to one call. Satisfied by *llm.Router.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

// EventBus publishes lifecycle events (§4.4). Satisfied by
// *pluginbus.Bus without this package importing it.
type EventBus interface {
	Publish(event types.PluginEvent)
}

// Processor runs the Intent Processor pipeline (§4.7).
type Processor struct {
	router LLMInvoker
	bus    EventBus
	log    *slog.Logger
}

// New builds a Processor over router. bus may be nil, in which case
// intent_recognized events are simply not published.
func New(router LLMInvoker, bus EventBus) *Processor {
	return &Processor{router: router, bus: bus, log: slog.With("component", "intent_processor")}
}

// llmClassification is the strict JSON shape the LLM is asked to
// produce in step (5).
type llmClassification struct {
	Intent                 string `json:"intent"`
	BrandName              string `json:"brand_name"`
	ProductDesc            string `json:"product_desc"`
	Topic                  string `json:"topic"`
	Command                string `json:"command"`
	ExplicitContentRequest bool   `json:"explicit_content_request"`
}

// Process runs the full 8-step pipeline against raw and optional
// conversation history, producing a ProcessedInput. It never returns
// an error: any LLM/parse failure degrades to free_discussion with
// empty structured data (§7).
func (p *Processor) Process(ctx context.Context, sessionID, userID, raw string, history []llm.Message) types.ProcessedInput {
	text := strings.TrimSpace(raw)

	// (1) Strip; empty -> default (casual_chat, no content request).
	if text == "" {
		return types.ProcessedInput{
			Intent: types.IntentCasualChat, RawQuery: raw,
			SessionID: sessionID, UserID: userID,
		}
	}

	// (2) Command detection.
	if m := commandPattern.FindStringSubmatch(text); m != nil {
		return types.ProcessedInput{
			Intent: types.IntentCommand, RawQuery: raw, Command: m[1],
			SessionID: sessionID, UserID: userID,
		}
	}

	intentValue := types.IntentFreeDiscussion
	var structured types.StructuredData
	explicitFromLLM := false
	command := ""

	// (3) Short casual reply closed set; (4) rule-based non-marketing
	// short-circuit. Either skips the LLM call entirely, but both
	// still flow through the hard corrections and self-introduction
	// extraction below.
	skipLLM := false
	if isShortCasual(text) {
		intentValue = types.IntentCasualChat
		skipLLM = true
	} else if rule := Classify(text); !rule.IsMarketing && rule.Confidence >= 0.75 {
		intentValue = types.IntentCasualChat
		skipLLM = true
	}

	// (5) LLM classification.
	llmFailed := false
	if !skipLLM {
		parsed, err := p.classifyWithLLM(ctx, text, history)
		if err != nil {
			p.log.Warn("llm intent classification failed, defaulting to free_discussion", "error", err)
			llmFailed = true
		} else {
			intentValue = parseIntent(parsed.Intent)
			structured = types.StructuredData{
				BrandName:   parsed.BrandName,
				ProductDesc: parsed.ProductDesc,
				Topic:       parsed.Topic,
			}
			explicitFromLLM = parsed.ExplicitContentRequest
			command = parsed.Command
		}
	}

	// (6) Hard corrections, in order. After an LLM/parse failure the
	// free_discussion default is kept, so no upgrade is applied.
	if isShortCasual(text) {
		intentValue = types.IntentCasualChat
	}
	if intentValue == types.IntentCasualChat && looksLikeProductMention(text) {
		intentValue = types.IntentFreeDiscussion
	}
	if !llmFailed && intentValue == types.IntentFreeDiscussion && looksLikeStructuredRequest(text) {
		intentValue = types.IntentStructuredRequest
	}

	// (7) Rule-derived explicit_content_request overrides the LLM.
	explicit := explicitFromLLM
	if deriveExplicitContentRequest(text) {
		explicit = true
	}

	// (8) Self-introduction extraction for casual_chat/free_discussion
	// (skipped after an LLM/parse failure, which keeps structured data empty).
	if !llmFailed && (intentValue == types.IntentCasualChat || intentValue == types.IntentFreeDiscussion) {
		if intro := extractSelfIntroduction(text); intro != "" && structured.BrandName == "" {
			structured.BrandName = intro
		}
	}

	result := types.ProcessedInput{
		Intent:                 intentValue,
		RawQuery:               raw,
		Command:                command,
		StructuredData:         structured,
		ExplicitContentRequest: explicit,
		SessionID:              sessionID,
		UserID:                 userID,
	}
	if result.Intent == types.IntentCommand && result.Command == "" {
		result.Intent = types.IntentFreeDiscussion
	}

	if p.bus != nil {
		p.bus.Publish(types.NewPluginEvent(types.EventIntentRecognized, "intent_processor", map[string]interface{}{
			"session_id": sessionID,
			"intent":     string(result.Intent),
			"command":    result.Command,
		}))
	}

	return result
}

func isShortCasual(text string) bool {
	runes := []rune(text)
	if len(runes) > 8 {
		return false
	}
	return shortCasualReplies[strings.ToLower(text)]
}

func parseIntent(s string) types.Intent {
	switch types.Intent(s) {
	case types.IntentStructuredRequest, types.IntentFreeDiscussion, types.IntentCasualChat,
		types.IntentDocumentQuery, types.IntentCommand:
		return types.Intent(s)
	default:
		return types.IntentFreeDiscussion
	}
}

// classifyWithLLM builds the prompt, invokes the LLM, and defensively
// parses the strict JSON response (§4.7 step 5).
func (p *Processor) classifyWithLLM(ctx context.Context, text string, history []llm.Message) (llmClassification, error) {
	messages := append([]llm.Message{{
		Role: "system",
		Content: "你是一个意图识别器。根据对话上下文和用户最新输入，输出严格 JSON：" +
			`{"intent": "structured_request|free_discussion|casual_chat|document_query|command", ` +
			`"brand_name": "", "product_desc": "", "topic": "", "command": "", "explicit_content_request": false}` +
			"。不要输出除 JSON 以外的任何内容。",
	}}, history...)
	messages = append(messages, llm.Message{Role: "user", Content: text})

	raw, err := p.router.Invoke(ctx, messages, "planning", "low")
	if err != nil {
		return llmClassification{}, err
	}

	cleaned := stripFencedCode(raw)
	var parsed llmClassification
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return llmClassification{}, err
	}
	return parsed, nil
}

// stripFencedCode removes ```json ... ``` or ``` ... ``` fences a
// model commonly wraps its JSON answer in.
func stripFencedCode(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
