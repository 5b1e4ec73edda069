// Package intent implements the Intent Processor (§4.7): a rule
// pre-filter plus LLM classification pipeline that normalizes a raw
// utterance into a ProcessedInput.
package intent

import "regexp"

// category is one weighted keyword bucket the rule-based classifier
// scores against.
type category struct {
	name     string
	keywords []string
	weight   float64
}

var categories = []category{
	{"action", []string{"写", "生成", "做一个", "帮我", "制作", "创作"}, 1.0},
	{"content", []string{"文案", "脚本", "标题", "封面", "海报", "视频", "图片"}, 1.0},
	{"platform", []string{"抖音", "小红书", "b站", "bilibili", "快手", "微博", "视频号"}, 0.9},
	{"growth", []string{"涨粉", "引流", "转化", "复购", "gmv", "roi", "销量"}, 0.8},
	{"ip", []string{"个人ip", "人设", "账号定位", "ip打造"}, 0.9},
	{"strategy", []string{"策略", "方案", "计划", "推广", "营销", "宣传"}, 0.9},
	{"question", []string{"怎么", "如何", "为什么", "什么是"}, 0.4},
	{"operation", []string{"运营", "投放", "预算", "排期"}, 0.7},
}

// strongPatterns short-circuit the classifier with a high confidence
// when matched, since these phrasings are unambiguous marketing asks.
var strongPatterns = []*regexp.Regexp{
	regexp.MustCompile(`帮我写.{0,10}(方案|文案)`),
	regexp.MustCompile(`怎么(推广|营销|宣传)`),
	regexp.MustCompile(`打造个人ip`),
	regexp.MustCompile(`写一篇.{0,10}(文案|推广|种草)`),
}

// smallTalkMarkers penalize the marketing score when present alongside
// otherwise-weak category matches — chit-chat phrasing riding along
// with a stray keyword shouldn't flip the verdict.
var smallTalkMarkers = []string{"你好", "谢谢", "再见", "哈哈", "嗯", "好的", "在吗"}

// ClassifyResult is the rule-based classifier's output (§4.7).
type ClassifyResult struct {
	IsMarketing       bool
	Confidence        float64
	Reason            string
	MatchedCategories []string
}

// Classify scores text against the fixed category set. Deterministic,
// no I/O.
func Classify(text string) ClassifyResult {
	normalized := normalizeForMatch(text)

	for _, pattern := range strongPatterns {
		if pattern.MatchString(normalized) {
			return ClassifyResult{
				IsMarketing:       true,
				Confidence:        0.9,
				Reason:            "strong pattern match",
				MatchedCategories: []string{"strategy"},
			}
		}
	}

	var matched []string
	var score float64
	for _, c := range categories {
		for _, kw := range c.keywords {
			if containsFold(normalized, kw) {
				matched = append(matched, c.name)
				score += c.weight
				break
			}
		}
	}

	if len(matched) >= 2 {
		score += 0.3 // pattern bonus: multiple categories co-occurring
	}

	for _, marker := range smallTalkMarkers {
		if containsFold(normalized, marker) {
			score -= 0.5
			break
		}
	}

	marketingScore := normalizeScore(score)
	isMarketing := marketingScore >= 0.5 && len(matched) > 0

	// Confidence reflects certainty in whichever label was assigned —
	// high when clearly marketing OR clearly not, low near the
	// decision boundary. This is what lets the pipeline short-circuit
	// on "scores non-marketing with confidence ≥0.75" using the same
	// scale as the marketing-side "≥0.85" strong-pattern confidence.
	confidence := marketingScore
	if !isMarketing {
		confidence = 1 - marketingScore
	}

	reason := "no marketing category matched"
	if len(matched) > 0 {
		reason = "matched categories: " + joinUnique(matched)
	}

	return ClassifyResult{
		IsMarketing:       isMarketing,
		Confidence:        confidence,
		Reason:            reason,
		MatchedCategories: dedupe(matched),
	}
}

// normalizeScore squashes the raw weighted sum into [0,1]. Weights are
// calibrated so 2-3 categories saturate near 1.0 without a sigmoid.
func normalizeScore(raw float64) float64 {
	if raw < 0 {
		return 0
	}
	if raw > 2.5 {
		return 1
	}
	return raw / 2.5
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func joinUnique(in []string) string {
	out := dedupe(in)
	result := ""
	for i, s := range out {
		if i > 0 {
			result += ", "
		}
		result += s
	}
	return result
}
