package heuristic

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/linnemanlabs/warden/internal/record"
)

// DefaultLimitPerRule is the candidate cap applied by the CLI scanner.
const DefaultLimitPerRule = 20

// ExcerptLen is the rune length of a candidate log excerpt.
const ExcerptLen = 200

// Candidate is a suggested annotation produced when a rule matches a record.
type Candidate struct {
	DatasetID         string `json:"dataset_id"`
	Timestamp         string `json:"timestamp"`
	Heuristic         string `json:"heuristic"`
	Severity          string `json:"severity"`
	DetectionGoal     string `json:"detection_goal"`
	RuleDescription   string `json:"rule_description"`
	LogExcerpt        string `json:"log_excerpt"`
	ExampleCompletion string `json:"example_completion"`
}

// BuildCandidate projects a matched record and rule into a Candidate.
func BuildCandidate(rec *record.Record, rule *Rule) Candidate {
	return Candidate{
		DatasetID:         rec.ID,
		Timestamp:         rec.Timestamp,
		Heuristic:         rule.Name,
		Severity:          rule.Severity,
		DetectionGoal:     rule.DetectionGoal,
		RuleDescription:   rec.Rule.String("description"),
		LogExcerpt:        Excerpt(rec.FullLog, ExcerptLen),
		ExampleCompletion: rule.ExampleCompletion,
	}
}

// Excerpt returns the first n runes of s.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Stats summarizes a scan pass.
type Stats struct {
	Records      int            `json:"records"`
	Matches      int            `json:"matches"`
	PerHeuristic map[string]int `json:"per_heuristic"`
}

// ScanHooks receives optional callbacks during a scan. Nil fields are skipped.
type ScanHooks struct {
	OnRecord func()
	OnMatch  func(rule *Rule)
}

// Scanner evaluates a catalog against a record stream.
type Scanner struct {
	catalog *Catalog
	limit   int
	hooks   ScanHooks
}

// NewScanner returns a Scanner that emits at most limit matches per rule,
// limit <= 0 means unlimited.
func NewScanner(catalog *Catalog, limit int, hooks ScanHooks) *Scanner {
	if limit < 0 {
		limit = 0
	}
	return &Scanner{catalog: catalog, limit: limit, hooks: hooks}
}

// Each reads r to exhaustion and calls emit for every (record, rule)
// match in record order then catalog order. Once a rule reaches the
// limit it emits nothing further; custom rules are still evaluated so
// their correlation state keeps tracking the stream. Errors from r or
// emit abort the pass.
func (s *Scanner) Each(
	ctx context.Context,
	r record.Reader,
	cctx *Context,
	emit func(rec *record.Record, rule *Rule) error,
) (Stats, error) {
	stats := Stats{PerHeuristic: make(map[string]int)}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("scan record %d: %w", stats.Records+1, err)
		}
		stats.Records++
		if s.hooks.OnRecord != nil {
			s.hooks.OnRecord()
		}

		for _, rule := range s.catalog.rules {
			capped := s.limit > 0 && stats.PerHeuristic[rule.Name] >= s.limit
			if capped && !rule.Custom() {
				continue
			}
			if !Match(rec, rule, cctx) || capped {
				continue
			}
			stats.PerHeuristic[rule.Name]++
			stats.Matches++
			if s.hooks.OnMatch != nil {
				s.hooks.OnMatch(rule)
			}
			if err := emit(rec, rule); err != nil {
				return stats, err
			}
		}
	}
}

// Scan collects candidates for every match in r.
func (s *Scanner) Scan(ctx context.Context, r record.Reader, cctx *Context) ([]Candidate, Stats, error) {
	var out []Candidate
	stats, err := s.Each(ctx, r, cctx, func(rec *record.Record, rule *Rule) error {
		out = append(out, BuildCandidate(rec, rule))
		return nil
	})
	return out, stats, err
}
