package plan

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
)

// RuleName identifies the rule planner in logs, metrics, and records.
const RuleName = "rule"

// Rule is the deterministic decision-ladder planner. It never fails.
type Rule struct {
	now   func() time.Time
	newID func() string
}

// NewRule returns a Rule planner using wall-clock time and ULID plan IDs.
func NewRule() *Rule {
	return &Rule{
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

// Name implements Planner.
func (r *Rule) Name() string { return RuleName }

// Plan implements Planner.
func (r *Rule) Plan(_ context.Context, a alert.Alert, as assess.Assessment) (*Plan, error) {
	return r.Build(a, as), nil
}

// SelectStrategy applies the decision ladder. The first matching rung wins.
func SelectStrategy(severity int, confidence float64, criticality int, privileged bool) Strategy {
	switch {
	case confidence < 0.3:
		return ObserveMore
	case (criticality >= 4 || privileged) && confidence < 0.85:
		return EscalateToHuman
	case confidence >= 0.85 && severity >= 70:
		return ContainAndCollect
	case confidence >= 0.6 && severity >= 50:
		return Contain
	default:
		return NotifyOnly
	}
}

// Priority combines severity, criticality, and confidence into 0..100.
// The sum saturates instead of overflowing.
func Priority(severity int, confidence float64, criticality int) int {
	if math.IsNaN(confidence) {
		confidence = 0
	}
	p := float64(severity) + float64(criticality)*10 + math.Trunc(math.Max(-1e6, math.Min(1e6, confidence*20)))
	return int(math.Max(0, math.Min(100, p)))
}

// Build constructs the plan for a and as.
func (r *Rule) Build(a alert.Alert, as assess.Assessment) *Plan {
	severity := as.Severity
	confidence := as.Confidence
	criticality := a.Int("context.assetCriticality", 0)
	privileged := a.Bool("context.privileged")

	strategy := SelectStrategy(severity, confidence, criticality, privileged)
	actions := actionsFor(strategy, a)

	env, ok := a.String("context.environment")
	if !ok {
		env = "unknown"
	}

	return &Plan{
		PlanID:          r.newID(),
		Strategy:        strategy,
		Priority:        Priority(severity, confidence, criticality),
		Summary:         fmt.Sprintf("Strategy=%s, Severity=%d, Confidence=%.2f", strategy, severity, confidence),
		Actions:         actions,
		RollbackActions: Rollbacks(actions),
		Rationale: []string{
			fmt.Sprintf("Selected strategy %s based on confidence %.2f and severity %d.", strategy, confidence, severity),
			fmt.Sprintf("Asset criticality: %d; privileged identity: %t.", criticality, privileged),
		},
		Tags: map[string]string{
			"environment": env,
			"generatedAt": r.now().UTC().Format(time.RFC3339Nano),
		},
	}
}

const ticketRationale = "Create a tracking ticket."

func actionsFor(s Strategy, a alert.Alert) []Action {
	switch s {
	case ObserveMore:
		return []Action{NewAction(OpenTicket, ticketRationale, nil)}
	case NotifyOnly:
		return []Action{
			NewAction(Notify, "Notify analysts.", nil),
			NewAction(OpenTicket, ticketRationale, nil),
		}
	case Contain, ContainAndCollect:
		var out []Action
		if ip, ok := a.String("entities.srcIp"); ok {
			out = append(out, NewAction(BlockIP, "Block suspicious source IP.", map[string]string{"src_ip": ip}))
		}
		if user, ok := a.String("entities.username"); ok {
			out = append(out, NewAction(DisableUser, "Disable user account.", map[string]string{"username": user}))
		}
		if host, ok := hostID(a); ok {
			out = append(out, NewAction(IsolateHost, "Isolate host.", map[string]string{"host_id": host}))
		}
		if s == ContainAndCollect {
			out = append(out, NewAction(CollectForensics, "Collect forensic artifacts.", nil))
		}
		return append(out, NewAction(OpenTicket, ticketRationale, nil))
	default:
		return []Action{
			NewAction(Notify, "Escalate to human analyst.", nil),
			NewAction(OpenTicket, ticketRationale, nil),
		}
	}
}

func hostID(a alert.Alert) (string, bool) {
	if h, ok := a.String("entities.hostId"); ok {
		return h, true
	}
	return a.String("entities.hostname")
}
