package intent

import (
	"regexp"
	"strings"
)

// normalizeForMatch lowercases and trims an utterance for
// keyword/regex matching. This is a matching-only normalization,
// distinct from the cache fingerprint normalizer in pkg/cache.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsFold reports whether haystack contains needle, both already
// assumed lowercased by the caller.
func containsFold(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// commandPattern matches "/word" or "/word/word" followed by
// whitespace or end of text — the §4.7 step (2) command detector.
var commandPattern = regexp.MustCompile(`^/([a-zA-Z0-9_]+)(?:/[a-zA-Z0-9_]+)*(?:\s|$)`)

// shortCasualReplies is the closed set of ≤8-char utterances that are
// always casual_chat without any classifier or LLM call.
var shortCasualReplies = map[string]bool{
	"你好": true, "您好": true, "嗨": true, "哈喽": true,
	"谢谢": true, "感谢": true, "好的": true, "好滴": true,
	"ok": true, "okay": true, "再见": true, "拜拜": true,
	"嗯": true, "嗯嗯": true, "哈哈": true, "哈哈哈": true,
	"在吗": true, "在的": true, "晚安": true, "早上好": true,
}

// explicitContentPhrases rule-derives explicit_content_request,
// overriding the LLM's answer when any phrase fires (§4.7 step 7).
var explicitContentPhrases = []string{
	"生成", "写一篇", "写一个", "帮我写", "出一版", "做一条",
	"给我写", "创作一篇", "起一个标题", "写个文案",
}

// selfIntroPatterns extract a self-introduction for long-term memory
// (§4.7 step 8).
var selfIntroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`我叫([^\s,，。！]{1,20})`),
	regexp.MustCompile(`我是做([^\s,，。！]{1,20})的`),
	regexp.MustCompile(`我们(?:是|做)([^\s,，。！]{1,20})(?:品牌|公司)`),
}

// structuredRequestMarkers co-occurrence rules: brand+product or
// brand+topic markers (§4.7 step 6.iii).
var brandMarkers = []string{"品牌", "我们的", "我的产品"}
var productMarkers = []string{"产品", "新品", "商品"}
var topicMarkers = []string{"主题", "话题", "方向"}

// looksLikeStructuredRequest reports whether text co-occurs a brand
// marker with either a product or topic marker, or matches one of the
// classifier's strong patterns.
func looksLikeStructuredRequest(text string) bool {
	normalized := normalizeForMatch(text)
	hasBrand := anyContains(normalized, brandMarkers)
	hasProduct := anyContains(normalized, productMarkers)
	hasTopic := anyContains(normalized, topicMarkers)
	if hasBrand && (hasProduct || hasTopic) {
		return true
	}
	for _, p := range strongPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

func anyContains(text string, markers []string) bool {
	for _, m := range markers {
		if containsFold(text, m) {
			return true
		}
	}
	return false
}

// looksLikeProductMention is the narrower check used by the
// casual_chat→free_discussion upgrade rule (§4.7 step 6.ii): marketing
// keywords or a bare product mention, without requiring co-occurrence.
func looksLikeProductMention(text string) bool {
	normalized := normalizeForMatch(text)
	if anyContains(normalized, productMarkers) || anyContains(normalized, brandMarkers) {
		return true
	}
	result := Classify(text)
	return result.IsMarketing
}

// deriveExplicitContentRequest rule-derives explicit_content_request
// from the fixed phrase list.
func deriveExplicitContentRequest(text string) bool {
	normalized := normalizeForMatch(text)
	for _, phrase := range explicitContentPhrases {
		if containsFold(normalized, phrase) {
			return true
		}
	}
	return false
}

// extractSelfIntroduction attempts regex extraction of a
// self-introduction. Returns the brand/topic-bearing fragment, or ""
// when nothing matched.
func extractSelfIntroduction(text string) string {
	for _, p := range selfIntroPatterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
