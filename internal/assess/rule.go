package assess

import (
	"context"
	"strings"

	"github.com/linnemanlabs/warden/internal/alert"
)

// RuleName identifies the rule assessor in logs, metrics, and records.
const RuleName = "rule"

type keywordRule struct {
	keywords   []string
	severity   int
	confidence float64
	hypothesis string
	evidence   string
}

// evaluated in order, first hit wins
var keywordRules = []keywordRule{
	{[]string{"ransomware", "trojan", "malware"}, 85, 0.85, "Likely malware activity.", "keyword:malware"},
	{[]string{"brute force", "bruteforce", "failed login"}, 60, 0.7, "Possible brute-force attempts.", "keyword:bruteforce"},
	{[]string{"port scan", "scan"}, 55, 0.65, "Possible scanning activity.", "keyword:scan"},
	{[]string{"benign"}, 20, 0.2, "Likely benign noise.", "keyword:benign"},
}

// Rule is the deterministic keyword/severity assessor. It never fails.
type Rule struct{}

// Name implements Assessor.
func (Rule) Name() string { return RuleName }

// Assess implements Assessor.
func (Rule) Assess(_ context.Context, a alert.Alert) (*Assessment, error) {
	res := Score(a)
	return &res, nil
}

// Score assesses a from its ruleName and type text, then its numeric
// severity, then a fixed default.
func Score(a alert.Alert) Assessment {
	name, _ := a.String("ruleName")
	typ, _ := a.String("type")
	text := strings.ToLower(name + " " + typ)

	for _, r := range keywordRules {
		for _, k := range r.keywords {
			if strings.Contains(text, k) {
				return Assessment{
					Severity:   r.severity,
					Confidence: r.confidence,
					Hypothesis: r.hypothesis,
					Evidence:   []string{r.evidence},
				}
			}
		}
	}

	if sev, ok := a.Integer("severity"); ok {
		return Assessment{
			Severity:   clampInt(sev, 0, 100),
			Confidence: 0.5,
			Hypothesis: "Severity-based assessment.",
			Evidence:   []string{"source:severity"},
		}
	}

	return Assessment{
		Severity:   40,
		Confidence: 0.5,
		Hypothesis: "Heuristic assessment.",
		Evidence:   []string{"source:default"},
	}
}
