package triage

import (
	"time"

	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/heuristic"
	"github.com/linnemanlabs/warden/internal/plan"
)

// ScoreResult is an assessment and where it came from.
type ScoreResult struct {
	Assessment assess.Assessment `json:"assessment"`
	Source     string            `json:"source"`
	Cached     bool              `json:"cached"`
}

// PlanRecord is the audit entry for one emitted plan. Alerts themselves
// are not persisted, only their fingerprint.
type PlanRecord struct {
	ID               string            `json:"id"`
	Fingerprint      string            `json:"fingerprint"`
	AssessmentSource string            `json:"assessment_source,omitempty"`
	PlanSource       string            `json:"plan_source"`
	Assessment       assess.Assessment `json:"assessment"`
	Plan             plan.Plan         `json:"plan"`
	CreatedAt        time.Time         `json:"created_at"`

	// Cached is set on records served from the plan cache. It is not persisted.
	Cached bool `json:"cached,omitempty"`
}

// TriageResult is the outcome of scoring then planning one alert.
type TriageResult struct {
	Assessment ScoreResult `json:"assessment"`
	Plan       *PlanRecord `json:"plan"`
}

// ScanResult is the outcome of a heuristic scan over a record stream.
type ScanResult struct {
	Candidates []heuristic.Candidate `json:"candidates"`
	Stats      heuristic.Stats       `json:"stats"`
}

// Stats describes the running service.
type Stats struct {
	OK             bool     `json:"ok"`
	Scorer         string   `json:"scorer"`
	ScorerSources  []string `json:"scorer_sources"`
	Planner        string   `json:"planner"`
	OllamaOK       *bool    `json:"ollama_ok,omitempty"`
	ScoreRequests  int64    `json:"score_requests"`
	PlanRequests   int64    `json:"plan_requests"`
	ScanRequests   int64    `json:"scan_requests"`
	CacheSize      int      `json:"cache_size"`
	CacheItems     int      `json:"cache_items"`
	PlanCacheSize  int      `json:"plan_cache_size"`
	PlanCacheItems int      `json:"plan_cache_items"`
	Heuristics     int      `json:"heuristics"`
}

// notifyStrategies are the strategies that page a human.
var notifyStrategies = map[plan.Strategy]bool{
	plan.EscalateToHuman:   true,
	plan.Contain:           true,
	plan.ContainAndCollect: true,
}
