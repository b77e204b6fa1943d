package assess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/warden/internal/alert"
)

// Attempt outcomes reported to Hooks.
const (
	OutcomeOK       = "ok"
	OutcomeNoResult = "no_result"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// Hooks receives per-source attempt events. Nil fields are skipped.
type Hooks struct {
	OnAttempt func(source, outcome string, dur time.Duration)
}

// Hybrid tries each source in order and falls back to Rule once every
// source has reported a recoverable failure.
type Hybrid struct {
	sources  []Assessor
	fallback Assessor
	hooks    Hooks
}

// NewHybrid returns a chain over sources. Nil sources are skipped.
func NewHybrid(sources []Assessor, hooks Hooks) *Hybrid {
	h := &Hybrid{fallback: Rule{}, hooks: hooks}
	for _, s := range sources {
		if s != nil {
			h.sources = append(h.sources, s)
		}
	}
	return h
}

// Name implements Assessor.
func (h *Hybrid) Name() string { return "hybrid" }

// Sources returns the names of the external sources in order.
func (h *Hybrid) Sources() []string {
	names := make([]string, len(h.sources))
	for i, s := range h.sources {
		names[i] = s.Name()
	}
	return names
}

// Assess implements Assessor.
func (h *Hybrid) Assess(ctx context.Context, a alert.Alert) (*Assessment, error) {
	res, _, err := h.AssessFrom(ctx, a)
	return res, err
}

// AssessFrom is Assess that also reports the name of the source whose
// result was used. Non-recoverable source errors abort the chain.
func (h *Hybrid) AssessFrom(ctx context.Context, a alert.Alert) (*Assessment, string, error) {
	for _, s := range h.sources {
		start := time.Now()
		res, err := s.Assess(ctx, a)
		dur := time.Since(start)

		switch {
		case err == nil && res != nil:
			h.report(s.Name(), OutcomeOK, dur)
			res.Clamp()
			return res, s.Name(), nil
		case err == nil, errors.Is(err, ErrNoResult):
			h.report(s.Name(), OutcomeNoResult, dur)
		case Recoverable(err):
			h.report(s.Name(), OutcomeTimeout, dur)
		default:
			h.report(s.Name(), OutcomeError, dur)
			return nil, s.Name(), fmt.Errorf("assessor %s: %w", s.Name(), err)
		}
	}

	start := time.Now()
	res, err := h.fallback.Assess(ctx, a)
	h.report(h.fallback.Name(), OutcomeOK, time.Since(start))
	return res, h.fallback.Name(), err
}

func (h *Hybrid) report(source, outcome string, dur time.Duration) {
	if h.hooks.OnAttempt != nil {
		h.hooks.OnAttempt(source, outcome, dur)
	}
}
