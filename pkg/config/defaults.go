package config

import "time"

// Defaults holds the system-wide knobs the spec calls out as decisions
// rather than per-plugin configuration: cache TTL policy (§4.1), the
// per-call capability timeout and fan-out bounds (§5), and the Plugin
// Bus recursion cap (§4.4).
type Defaults struct {
	// CacheTTL policy, one entry per cache-key prefix family.
	AnalysisTTL time.Duration `yaml:"analysis_ttl,omitempty"`
	RetrievalTTL time.Duration `yaml:"retrieval_ttl,omitempty"`
	MemoryTTL    time.Duration `yaml:"memory_ttl,omitempty"`
	ProfileTTL   time.Duration `yaml:"profile_ttl,omitempty"`
	HotspotTTL   time.Duration `yaml:"hotspot_ttl,omitempty"`

	// CapabilityTimeout bounds every outbound plugin/port call (§5,
	// default 90s).
	CapabilityTimeout time.Duration `yaml:"capability_timeout,omitempty"`

	// MaxParallelSteps bounds the orchestrator's parallel-phase subset
	// size (§5, ≤4 in practice).
	MaxParallelSteps int `yaml:"max_parallel_steps,omitempty"`

	// BusMaxDepth caps Plugin Bus recursive publish depth (§4.4, 32).
	BusMaxDepth int `yaml:"bus_max_depth,omitempty"`

	// MaxCharsPerDoc and MaxTotalDocChars bound document binding's
	// per-document truncation and running total (§4.13).
	MaxCharsPerDoc   int `yaml:"max_chars_per_doc,omitempty"`
	MaxTotalDocChars int `yaml:"max_total_doc_chars,omitempty"`
}

// DefaultDefaults returns the built-in defaults used when a YAML file
// doesn't override them.
func DefaultDefaults() *Defaults {
	return &Defaults{
		AnalysisTTL:       1 * time.Hour,
		RetrievalTTL:      1 * time.Hour,
		MemoryTTL:         1 * time.Hour,
		ProfileTTL:        5 * time.Minute,
		HotspotTTL:        6 * time.Hour,
		CapabilityTimeout: 90 * time.Second,
		MaxParallelSteps:  4,
		BusMaxDepth:       32,
		MaxCharsPerDoc:    4000,
		MaxTotalDocChars:  12000,
	}
}

// applyDefaults fills any zero-valued field of d from fallback.
func applyDefaults(d, fallback *Defaults) *Defaults {
	if d == nil {
		return fallback
	}
	if d.AnalysisTTL == 0 {
		d.AnalysisTTL = fallback.AnalysisTTL
	}
	if d.RetrievalTTL == 0 {
		d.RetrievalTTL = fallback.RetrievalTTL
	}
	if d.MemoryTTL == 0 {
		d.MemoryTTL = fallback.MemoryTTL
	}
	if d.ProfileTTL == 0 {
		d.ProfileTTL = fallback.ProfileTTL
	}
	if d.HotspotTTL == 0 {
		d.HotspotTTL = fallback.HotspotTTL
	}
	if d.CapabilityTimeout == 0 {
		d.CapabilityTimeout = fallback.CapabilityTimeout
	}
	if d.MaxParallelSteps == 0 {
		d.MaxParallelSteps = fallback.MaxParallelSteps
	}
	if d.BusMaxDepth == 0 {
		d.BusMaxDepth = fallback.BusMaxDepth
	}
	if d.MaxCharsPerDoc == 0 {
		d.MaxCharsPerDoc = fallback.MaxCharsPerDoc
	}
	if d.MaxTotalDocChars == 0 {
		d.MaxTotalDocChars = fallback.MaxTotalDocChars
	}
	return d
}
