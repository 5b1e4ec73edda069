// Package ports defines the capability ports (§6): narrow interfaces
// abstracting external retrieval and analytics vendors the deep-thinking
// engine treats as collaborators, never implementations. Every port has
// a deterministic mock adapter (this package) suitable for tests and a
// development deployment without external credentials; a "real" adapter
// lives behind the same interface and is selected by configuration, not
// by the orchestrator or sub-graphs, which depend only on the
// interfaces in interfaces.go.
package ports

import "time"

// SearchResult is one ranked web-search hit (§6 Search port).
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

// ImageAnalysisResult is the Multimodal port's image-analysis output
// (§3 supplemented types).
type ImageAnalysisResult struct {
	Labels         []string `json:"labels"`
	Description    string   `json:"description"`
	SafetyFlags    []string `json:"safety_flags"`
	SafetyScore    float64  `json:"safety_score"`
	ExtractedText  string   `json:"extracted_text"`
}

// VideoScene is one detected scene in a video-analysis result.
type VideoScene struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Description  string  `json:"description"`
}

// VideoAnalysisResult is the Multimodal port's video-analysis output.
type VideoAnalysisResult struct {
	Scenes          []VideoScene `json:"scenes"`
	Transcript      string       `json:"transcript"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// ViralPrediction is the Prediction port's virality-score output.
type ViralPrediction struct {
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Factors    map[string]float64 `json:"factors"`
}

// CTRPrediction is the Prediction port's click-through-rate output.
type CTRPrediction struct {
	CTR        float64            `json:"ctr"`
	Confidence float64            `json:"confidence"`
	Factors    map[string]float64 `json:"factors"`
}

// StoryBeat is one narrative beat in a decomposed video's structure.
type StoryBeat struct {
	Label       string  `json:"label"`
	StartSecond float64 `json:"start_second"`
	Description string  `json:"description"`
}

// VideoContentStructure is the Video Decomposition port's output (§3).
type VideoContentStructure struct {
	Hook       string      `json:"hook"`
	Setup      string      `json:"setup"`
	Conflict   string      `json:"conflict"`
	Resolution string      `json:"resolution"`
	CTA        string      `json:"cta"`
	Beats      []StoryBeat `json:"beats"`
	Platform   string      `json:"platform"`
}

// SampleRecord is one entry the Sample Library port ingests or returns.
type SampleRecord struct {
	VideoID     string    `json:"video_id"`
	Platform    string    `json:"platform"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Transcript  string    `json:"transcript"`
	Metrics     map[string]float64 `json:"metrics"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// RuleSet is the Platform Rules port's per-platform content policy
// (§3).
type RuleSet struct {
	Platform          string             `json:"platform"`
	SensitiveWords    []string           `json:"sensitive_words"`
	ProhibitedVisuals []string           `json:"prohibited_visuals"`
	TitleMaxLen       int                `json:"title_max_len"`
	DescMaxLen        int                `json:"desc_max_len"`
	Thresholds        map[string]float64 `json:"thresholds"`
}

// MethodologyDoc is one entry from the Methodology port's document
// store.
type MethodologyDoc struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// CaseTemplateRecord is one saved case template (Case Template port).
type CaseTemplateRecord struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Scores      map[string]float64 `json:"scores"`
}

// Feedback is one recorded user rating/comment (Data Loop port).
type Feedback struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformMetric is one recorded platform-performance data point.
type PlatformMetric struct {
	Platform  string    `json:"platform"`
	VideoID   string    `json:"video_id"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoPerformance aggregates PlatformMetric rows for one video.
type VideoPerformance struct {
	VideoID string             `json:"video_id"`
	Metrics map[string]float64 `json:"metrics"`
}
