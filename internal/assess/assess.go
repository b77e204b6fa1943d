// Package assess assigns a severity/confidence assessment to an alert.
// Rule is the deterministic fallback; Hybrid tries external sources in
// order and falls back to Rule when none yields a result.
package assess

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/linnemanlabs/warden/internal/alert"
)

// ErrNoResult reports that a source produced nothing usable. It is the
// signal for a chain to move on to its next source.
var ErrNoResult = errors.New("no usable result")

// Assessment is a severity/confidence judgment about an alert.
type Assessment struct {
	Severity   int      `json:"severity"`
	Confidence float64  `json:"confidence"`
	Hypothesis string   `json:"hypothesis"`
	Evidence   []string `json:"evidence"`
}

// Assessor produces an Assessment for an alert. Implementations return an
// error wrapping ErrNoResult, or a context error, when they cannot decide.
type Assessor interface {
	Name() string
	Assess(ctx context.Context, a alert.Alert) (*Assessment, error)
}

// Recoverable reports whether err should make a chain fall through to the
// next source rather than fail.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNoResult) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// Clamp forces severity into 0..100 and confidence into 0..1.
func (a *Assessment) Clamp() {
	a.Severity = clampInt(a.Severity, 0, 100)
	switch {
	case math.IsNaN(a.Confidence) || a.Confidence < 0:
		a.Confidence = 0
	case a.Confidence > 1:
		a.Confidence = 1
	}
	if a.Evidence == nil {
		a.Evidence = []string{}
	}
}

// Parse decodes an assessment from an external source. The document must
// be a JSON object with numeric severity and confidence; anything else is
// ErrNoResult. Values are clamped and non-string evidence is dropped.
func Parse(data string) (*Assessment, error) {
	data = strings.TrimSpace(data)
	if data == "" || !gjson.Valid(data) {
		return nil, ErrNoResult
	}
	doc := gjson.Parse(data)
	if !doc.IsObject() {
		return nil, ErrNoResult
	}
	sev, conf := doc.Get("severity"), doc.Get("confidence")
	if sev.Type != gjson.Number || conf.Type != gjson.Number {
		return nil, ErrNoResult
	}

	a := decode(doc)
	return &a, nil
}

// Lenient decodes an assessment supplied by a caller. Missing or
// mistyped fields read as zero values.
func Lenient(data string) Assessment {
	if !gjson.Valid(data) {
		a := Assessment{}
		a.Clamp()
		return a
	}
	return decode(gjson.Parse(data))
}

func decode(doc gjson.Result) Assessment {
	a := Assessment{
		Severity:   int(clampFloat(doc.Get("severity").Float(), 0, 100)),
		Confidence: doc.Get("confidence").Float(),
		Evidence:   []string{},
	}
	if h := doc.Get("hypothesis"); h.Type == gjson.String {
		a.Hypothesis = h.String()
	}
	for _, e := range doc.Get("evidence").Array() {
		if e.Type == gjson.String {
			a.Evidence = append(a.Evidence, e.String())
		}
	}
	a.Clamp()
	return a
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}
