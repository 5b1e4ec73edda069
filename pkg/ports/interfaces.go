package ports

import "context"

// Search abstracts a web-search vendor (§6).
type Search interface {
	Search(ctx context.Context, query string, numResults int, searchType string) ([]SearchResult, error)
	FormatResultsAsContext(results []SearchResult) string
}

// Knowledge abstracts a knowledge-base retrieval vendor (§6).
type Knowledge interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Multimodal abstracts image/video understanding (§6).
type Multimodal interface {
	AnalyzeImage(ctx context.Context, urlOrBytes string, options map[string]interface{}) (ImageAnalysisResult, error)
	AnalyzeVideo(ctx context.Context, url string, options map[string]interface{}) (VideoAnalysisResult, error)
}

// Prediction abstracts viral/CTR forecasting (§6).
type Prediction interface {
	PredictViral(ctx context.Context, features map[string]interface{}, platform string) (ViralPrediction, error)
	PredictCTR(ctx context.Context, coverFeatures map[string]interface{}, title, platform string) (CTRPrediction, error)
}

// VideoDecomposition abstracts structural breakdown of a video or raw
// text into a VideoContentStructure (§6).
type VideoDecomposition interface {
	Decompose(ctx context.Context, videoURL, rawText string, multimodal *VideoAnalysisResult, platform string) (VideoContentStructure, error)
}

// SampleLibrary abstracts a corpus of reference creative samples (§6).
type SampleLibrary interface {
	Ingest(ctx context.Context, samples []SampleRecord, batchSize int) (int, error)
	Search(ctx context.Context, platform, category string, topK int, filters map[string]interface{}) ([]SampleRecord, error)
	GetByID(ctx context.Context, videoID, platform string) (*SampleRecord, error)
}

// PlatformRules abstracts per-platform content policy (§6).
type PlatformRules interface {
	GetRules(ctx context.Context, platform string) (RuleSet, error)
	Reload(ctx context.Context) error
}

// Methodology abstracts a store of marketing-methodology documents
// (§6).
type Methodology interface {
	ListDocs(ctx context.Context, category string) ([]MethodologyDoc, error)
	GetDoc(ctx context.Context, path string) (*MethodologyDoc, error)
	CreateDoc(ctx context.Context, doc MethodologyDoc) error
	UpdateDoc(ctx context.Context, doc MethodologyDoc) error
	DeleteDoc(ctx context.Context, path string) error
}

// CaseTemplate abstracts saved case-template CRUD + scoring (§6).
type CaseTemplate interface {
	Create(ctx context.Context, tmpl CaseTemplateRecord) (string, error)
	GetByID(ctx context.Context, id string) (*CaseTemplateRecord, error)
	List(ctx context.Context) ([]CaseTemplateRecord, error)
	Update(ctx context.Context, tmpl CaseTemplateRecord) error
	Delete(ctx context.Context, id string) error
	AddScore(ctx context.Context, id, dimension string, score float64) error
	GetScores(ctx context.Context, id string) (map[string]float64, error)
}

// DataLoop abstracts the feedback/metrics loop that closes generation
// quality back into future plans (§6).
type DataLoop interface {
	RecordFeedback(ctx context.Context, fb Feedback) error
	GetFeedbacks(ctx context.Context, userID, sessionID string, limit int) ([]Feedback, error)
	RecordPlatformMetric(ctx context.Context, m PlatformMetric) error
	GetPlatformMetrics(ctx context.Context, platform, videoID string) ([]PlatformMetric, error)
	GetVideoPerformance(ctx context.Context, videoID string) (VideoPerformance, error)
}
