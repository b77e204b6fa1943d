package cfg

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
)

// LLM backends usable as assessment sources or planners.
const (
	BackendOllama = "ollama"
	BackendClaude = "claude"
	BackendGemini = "gemini"

	// PlannerRule is the deterministic local planner.
	PlannerRule = "rule"
	// PlannerHTTP is the remote HTTP planning service.
	PlannerHTTP = "http"
)

var (
	scorerBackends = []string{BackendOllama, BackendClaude, BackendGemini}
	localPlanners  = []string{PlannerRule, BackendOllama, BackendClaude, BackendGemini}
	remotePlanners = []string{"", PlannerHTTP, BackendOllama, BackendClaude, BackendGemini}
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APITokens             string

	CatalogPath   string
	ActionMapPath string
	ScanLimit     int
	HistorySize   int
	CacheSize     int

	ScorerSources        string
	SourceTimeoutSeconds int
	PlannerLocal         string
	PlannerRemote        string

	OllamaURL    string
	OllamaModel  string
	ClaudeAPIKey string
	ClaudeModel  string
	GeminiAPIKey string
	GeminiModel  string

	PlannerURL            string
	PlannerAPIKey         string
	PlannerAPIKeyHeader   string
	PlannerAPIKeyPrefix   string
	PlannerTimeoutSeconds int

	DatabaseURL     string
	StoreCapacity   int
	SlackWebhookURL string
	NATSURL         string
	NATSSubject     string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APITokens, "api-tokens", "", "comma-separated bearer tokens accepted by the API (empty = no auth)")

	fs.StringVar(&c.CatalogPath, "catalog", "", "heuristic catalog YAML file (empty = built-in catalog)")
	fs.StringVar(&c.ActionMapPath, "action-map", "", "JSON file mapping severity labels to response actions (empty = built-in map)")
	fs.IntVar(&c.ScanLimit, "scan-limit", 0, "maximum candidates per heuristic per scan (0 = unlimited)")
	fs.IntVar(&c.HistorySize, "correlation-history", 100000, "identities remembered by correlation heuristics (>= 1)")
	fs.IntVar(&c.CacheSize, "cache-size", 256, "entries in each of the assessment and plan LRU caches (0 disables caching)")

	fs.StringVar(&c.ScorerSources, "scorer-sources", BackendOllama, "comma-separated assessment sources tried before the rule scorer (ollama, claude, gemini)")
	fs.IntVar(&c.SourceTimeoutSeconds, "source-timeout-seconds", 120, "per-call timeout for LLM assessment and planning sources (1..600)")
	fs.StringVar(&c.PlannerLocal, "planner-local", PlannerRule, "local planner (rule, ollama, claude, gemini)")
	fs.StringVar(&c.PlannerRemote, "planner-remote", "", "fallback planner tried when the local planner has no result (http, ollama, claude, gemini)")

	fs.StringVar(&c.OllamaURL, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	fs.StringVar(&c.OllamaModel, "ollama-model", "mistral", "Ollama model name")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for accessing the Gemini LLM provider")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-1.5-flash", "Gemini model to use")

	fs.StringVar(&c.PlannerURL, "planner-url", "", "remote planning service base URL (POST <url>/v1/plan)")
	fs.StringVar(&c.PlannerAPIKey, "planner-api-key", "", "API key sent to the remote planning service")
	fs.StringVar(&c.PlannerAPIKeyHeader, "planner-api-key-header", "Authorization", "header carrying the remote planner API key")
	fs.StringVar(&c.PlannerAPIKeyPrefix, "planner-api-key-prefix", "Bearer", "prefix placed before the remote planner API key")
	fs.IntVar(&c.PlannerTimeoutSeconds, "planner-timeout-seconds", 60, "remote planning service timeout (1..600)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the plan audit log (empty = in-memory store)")
	fs.IntVar(&c.StoreCapacity, "store-capacity", 10000, "plan records kept by the in-memory store (>= 1)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for plan notifications")
	fs.StringVar(&c.NATSURL, "nats-url", "", "NATS server URL for plan events (empty = disabled)")
	fs.StringVar(&c.NATSSubject, "nats-subject", "warden.plans", "NATS subject prefix for plan events")
}

// Scorers returns the configured assessment sources in order.
func (c *Config) Scorers() []string {
	out := splitList(c.ScorerSources)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// Tokens returns the configured API bearer tokens.
func (c *Config) Tokens() []string { return splitList(c.APITokens) }

// Uses reports whether backend is configured as a scorer or a planner.
func (c *Config) Uses(backend string) bool {
	return slices.Contains(c.Scorers(), backend) || c.PlannerLocal == backend || c.PlannerRemote == backend
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.ScanLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid SCAN_LIMIT %d (must be >= 0)", c.ScanLimit))
	}
	if c.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("invalid CORRELATION_HISTORY %d (must be >= 1)", c.HistorySize))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("invalid CACHE_SIZE %d (must be >= 0)", c.CacheSize))
	}
	if c.StoreCapacity < 1 {
		errs = append(errs, fmt.Errorf("invalid STORE_CAPACITY %d (must be >= 1)", c.StoreCapacity))
	}
	if c.SourceTimeoutSeconds <= 0 || c.SourceTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid SOURCE_TIMEOUT_SECONDS %d (must be 1..600)", c.SourceTimeoutSeconds))
	}

	// Assessment sources are tried in order, each at most once
	seen := make(map[string]bool)
	for _, s := range c.Scorers() {
		if !slices.Contains(scorerBackends, s) {
			errs = append(errs, fmt.Errorf("unknown SCORER_SOURCES entry %q (must be one of %s)", s, strings.Join(scorerBackends, ", ")))
		}
		if seen[s] {
			errs = append(errs, fmt.Errorf("duplicate SCORER_SOURCES entry %q", s))
		}
		seen[s] = true
	}

	if !slices.Contains(localPlanners, c.PlannerLocal) {
		errs = append(errs, fmt.Errorf("unknown PLANNER_LOCAL %q (must be one of %s)", c.PlannerLocal, strings.Join(localPlanners, ", ")))
	}
	if !slices.Contains(remotePlanners, c.PlannerRemote) {
		errs = append(errs, fmt.Errorf("unknown PLANNER_REMOTE %q (must be empty or one of %s)", c.PlannerRemote, strings.Join(remotePlanners[1:], ", ")))
	}
	if c.PlannerRemote != "" && c.PlannerRemote == c.PlannerLocal {
		errs = append(errs, fmt.Errorf("PLANNER_REMOTE %q must differ from PLANNER_LOCAL", c.PlannerRemote))
	}

	// Remote planning service
	if c.PlannerRemote == PlannerHTTP && c.PlannerURL == "" {
		errs = append(errs, errors.New("PLANNER_URL is required when PLANNER_REMOTE is http"))
	}
	if c.PlannerURL != "" && !strings.HasPrefix(c.PlannerURL, "http://") && !strings.HasPrefix(c.PlannerURL, "https://") {
		errs = append(errs, fmt.Errorf("invalid PLANNER_URL %q (must be http or https)", c.PlannerURL))
	}
	if c.PlannerTimeoutSeconds <= 0 || c.PlannerTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid PLANNER_TIMEOUT_SECONDS %d (must be 1..600)", c.PlannerTimeoutSeconds))
	}

	// Backend credentials are only required when the backend is wired
	if c.Uses(BackendOllama) && c.OllamaURL == "" {
		errs = append(errs, errors.New("OLLAMA_URL is required when ollama is a scorer or planner"))
	}
	if c.Uses(BackendClaude) {
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when claude is a scorer or planner"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required when claude is a scorer or planner"))
		}
	}
	if c.Uses(BackendGemini) && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required when gemini is a scorer or planner"))
	}

	if c.NATSURL != "" && c.NATSSubject == "" {
		errs = append(errs, errors.New("NATS_SUBJECT is required when NATS_URL is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
