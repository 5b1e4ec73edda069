// Package memory implements the Memory Service (§4.2): assembling a
// single prompt-shaped preference block from brand facts, success
// cases, profile, and recent interactions, with Smart Cache-backed
// memoization keyed on the caller's stable discriminants.
package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/cache"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

const recentInteractionLimit = 5

// ContextFingerprint summarizes the inputs that shaped a preference
// context, for downstream cache-key derivation and debugging.
type ContextFingerprint struct {
	Tags         []string `json:"tags"`
	RecentTopics []string `json:"recent_topics"`
}

// Assembled is the Memory Service's output shape (§4.2).
type Assembled struct {
	PreferenceContext  string             `json:"preference_context"`
	ContextFingerprint ContextFingerprint `json:"context_fingerprint"`
	EffectiveTags      []string           `json:"effective_tags"`
}

// Service assembles preference context from a profile store and an
// interaction history store, memoized through a SmartCache.
type Service struct {
	profiles     types.UserProfileStore
	interactions types.InteractionHistoryStore
	smartCache   *cache.SmartCache
	memoryTTL    time.Duration
}

// New builds a Memory Service.
func New(profiles types.UserProfileStore, interactions types.InteractionHistoryStore, smartCache *cache.SmartCache, memoryTTL time.Duration) *Service {
	return &Service{profiles: profiles, interactions: interactions, smartCache: smartCache, memoryTTL: memoryTTL}
}

// Assemble builds the preference context for one request. tagsOverride,
// when non-empty, replaces the profile's tags as the effective_tags
// result (§4.2 invariant). The result is cached under
// (user_id, brand, product, topic, sorted tags).
func (s *Service) Assemble(userID, sessionID, brand, product, topic string, tagsOverride []string) (Assembled, error) {
	profile, err := s.profiles.Get(userID)
	if err != nil {
		return Assembled{}, fmt.Errorf("memory: load profile: %w", err)
	}

	effectiveTags := profile.Tags
	if len(tagsOverride) > 0 {
		effectiveTags = tagsOverride
	}
	sortedTags := append([]string(nil), effectiveTags...)
	sort.Strings(sortedTags)

	key := cache.BuildFingerprintKey("memory:", map[string]interface{}{
		"user_id": userID,
		"brand":   brand,
		"product": product,
		"topic":   topic,
		"tags":    sortedTags,
	})

	result, _, err := s.smartCache.GetOrSet(key, s.memoryTTL, func() (interface{}, error) {
		return s.build(userID, sessionID, profile, effectiveTags)
	})
	if err != nil {
		return Assembled{}, err
	}

	// A cache hit deserializes through JSON into a generic shape, not
	// the original Assembled value; round-trip through JSON once more
	// to normalize either case into a typed result.
	raw, err := json.Marshal(result)
	if err != nil {
		return Assembled{}, fmt.Errorf("memory: re-encode cached result: %w", err)
	}
	var assembled Assembled
	if err := json.Unmarshal(raw, &assembled); err != nil {
		return Assembled{}, fmt.Errorf("memory: decode cached result: %w", err)
	}
	return assembled, nil
}

// build composes the three-layer preference block: brand facts
// (highest priority), success cases, then profile attributes, and
// attaches recent-topic context derived from interaction history.
func (s *Service) build(userID, sessionID string, profile *types.UserProfile, effectiveTags []string) (Assembled, error) {
	var b strings.Builder

	if len(profile.BrandFacts) > 0 {
		b.WriteString("品牌信息：\n")
		for _, f := range profile.BrandFacts {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Fact)
		}
	}

	if len(profile.SuccessCases) > 0 {
		b.WriteString("成功案例：\n")
		for _, c := range profile.SuccessCases {
			fmt.Fprintf(&b, "- %s：%s（效果：%s）\n", c.Title, c.Description, c.Outcome)
		}
	}

	b.WriteString("用户画像：\n")
	if profile.BrandName != "" {
		fmt.Fprintf(&b, "- 品牌：%s\n", profile.BrandName)
	}
	if profile.Industry != "" {
		fmt.Fprintf(&b, "- 行业：%s\n", profile.Industry)
	}
	if profile.PreferredStyle != "" {
		fmt.Fprintf(&b, "- 风格偏好：%s\n", profile.PreferredStyle)
	}
	if len(effectiveTags) > 0 {
		fmt.Fprintf(&b, "- 标签：%s\n", strings.Join(effectiveTags, "、"))
	}

	recent, err := s.interactions.Recent(userID, sessionID, recentInteractionLimit)
	if err != nil {
		return Assembled{}, fmt.Errorf("memory: load recent interactions: %w", err)
	}
	topics := recentTopics(recent)
	if len(topics) > 0 {
		fmt.Fprintf(&b, "最近讨论：%s\n", strings.Join(topics, "、"))
	}

	sortedTags := append([]string(nil), effectiveTags...)
	sort.Strings(sortedTags)
	sortedTopics := append([]string(nil), topics...)
	sort.Strings(sortedTopics)

	return Assembled{
		PreferenceContext: strings.TrimSpace(b.String()),
		ContextFingerprint: ContextFingerprint{
			Tags:         sortedTags,
			RecentTopics: sortedTopics,
		},
		EffectiveTags: effectiveTags,
	}, nil
}

// recentTopics extracts a deduplicated topic summary from recent
// interaction UserInput text. The real implementation
// semantically summarizes each turn; here we fall back to a
// first-line extraction, which is deterministic given the same
// history — the invariant Assemble relies on.
func recentTopics(recent []types.InteractionHistory) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, r := range recent {
		line := firstLine(r.UserInput)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		topics = append(topics, line)
	}
	return topics
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// GetRecentConversationText returns a chronological 用户:…/助手:…
// transcript, biased to sessionID when non-empty, for prompt
// inclusion.
func (s *Service) GetRecentConversationText(userID, sessionID string, limit int) (string, error) {
	recent, err := s.interactions.Recent(userID, sessionID, limit)
	if err != nil {
		return "", fmt.Errorf("memory: load recent interactions: %w", err)
	}
	var b strings.Builder
	for _, r := range recent {
		fmt.Fprintf(&b, "用户：%s\n助手：%s\n", firstLine(r.UserInput), r.AIOutput)
	}
	return strings.TrimSpace(b.String()), nil
}

// GetUserSummary returns a single-line identity summary for casual
// replies.
func (s *Service) GetUserSummary(userID string) (string, error) {
	profile, err := s.profiles.Get(userID)
	if err != nil {
		return "", fmt.Errorf("memory: load profile: %w", err)
	}
	var parts []string
	if profile.BrandName != "" {
		parts = append(parts, profile.BrandName)
	}
	if profile.Industry != "" {
		parts = append(parts, profile.Industry)
	}
	if profile.PreferredStyle != "" {
		parts = append(parts, profile.PreferredStyle+"风格")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, " / "), nil
}
