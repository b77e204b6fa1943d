package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
)

func mustAlert(t *testing.T, s string) alert.Alert {
	t.Helper()
	a, err := alert.Parse([]byte(s))
	if err != nil {
		t.Fatalf("alert.Parse: %v", err)
	}
	return a
}

func fixedRule() *Rule {
	return &Rule{
		now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		newID: func() string { return "plan-1" },
	}
}

func types(actions []Action) []ActionType {
	out := make([]ActionType, len(actions))
	for i, a := range actions {
		out[i] = a.Type
	}
	return out
}

func TestSelectStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sev  int
		conf float64
		crit int
		priv bool
		want Strategy
	}{
		{"low confidence", 100, 0.29, 5, true, ObserveMore},
		{"critical asset", 90, 0.5, 4, false, EscalateToHuman},
		{"privileged", 20, 0.84, 0, true, EscalateToHuman},
		{"privileged but very confident", 90, 0.85, 0, true, ContainAndCollect},
		{"confident severe", 70, 0.85, 0, false, ContainAndCollect},
		{"confident not severe enough", 69, 0.95, 0, false, Contain},
		{"contain boundary", 50, 0.6, 3, false, Contain},
		{"below contain", 49, 0.6, 0, false, NotifyOnly},
		{"mid confidence", 90, 0.59, 0, false, NotifyOnly},
		{"confidence exactly 0.3", 10, 0.3, 0, false, NotifyOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SelectStrategy(tt.sev, tt.conf, tt.crit, tt.priv); got != tt.want {
				t.Errorf("SelectStrategy(%d, %.2f, %d, %v) = %s, want %s", tt.sev, tt.conf, tt.crit, tt.priv, got, tt.want)
			}
		})
	}
}

func TestSelectStrategy_Total(t *testing.T) {
	t.Parallel()

	valid := map[Strategy]bool{}
	for _, s := range Strategies {
		valid[s] = true
	}
	for sev := 0; sev <= 100; sev += 5 {
		for c := 0; c <= 20; c++ {
			conf := float64(c) / 20
			for crit := 0; crit <= 5; crit++ {
				for _, priv := range []bool{false, true} {
					s := SelectStrategy(sev, conf, crit, priv)
					if !valid[s] {
						t.Fatalf("SelectStrategy(%d, %.2f, %d, %v) = %q, not a strategy", sev, conf, crit, priv, s)
					}
					if s != SelectStrategy(sev, conf, crit, priv) {
						t.Fatal("SelectStrategy is not deterministic")
					}
				}
			}
		}
	}
}

func TestPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sev  int
		conf float64
		crit int
		want int
	}{
		{50, 0.5, 2, 80},
		{0, 0, 0, 0},
		{90, 0.9, 3, 100},
		{-50, 0, 0, 0},
		{10, 0.49, 0, 19},
		{60, 0.7, math.MaxInt, 100},
		{60, 0.7, math.MinInt, 0},
		{math.MaxInt, 1, math.MaxInt, 100},
		{math.MinInt, 0, 0, 0},
		{50, math.NaN(), 0, 50},
		{50, math.Inf(1), 0, 100},
	}
	for _, tt := range tests {
		if got := Priority(tt.sev, tt.conf, tt.crit); got != tt.want {
			t.Errorf("Priority(%d, %.2f, %d) = %d, want %d", tt.sev, tt.conf, tt.crit, got, tt.want)
		}
	}
}

func TestBuild_ContainAndCollectScenario(t *testing.T) {
	t.Parallel()

	a := mustAlert(t, `{"context":{"assetCriticality":1},"entities":{"srcIp":"10.0.0.5"}}`)
	p := fixedRule().Build(a, assess.Assessment{Severity: 80, Confidence: 0.9})

	if p.Strategy != ContainAndCollect {
		t.Fatalf("Strategy = %s, want ContainAndCollect", p.Strategy)
	}
	want := []ActionType{BlockIP, CollectForensics, OpenTicket}
	if fmt.Sprint(types(p.Actions)) != fmt.Sprint(want) {
		t.Errorf("actions = %v, want %v", types(p.Actions), want)
	}
	if p.Actions[0].Parameters["src_ip"] != "10.0.0.5" {
		t.Errorf("BlockIp src_ip = %q, want 10.0.0.5", p.Actions[0].Parameters["src_ip"])
	}
	if len(p.RollbackActions) != 1 || p.RollbackActions[0].Type != UnblockIP {
		t.Fatalf("rollbacks = %v, want exactly one UnblockIp", types(p.RollbackActions))
	}
	if p.RollbackActions[0].Parameters["src_ip"] != "10.0.0.5" {
		t.Error("rollback must carry forward parameters")
	}
	if p.RollbackActions[0].Rationale != "Rollback for BlockIp" {
		t.Errorf("rollback rationale = %q", p.RollbackActions[0].Rationale)
	}
	// 80 + 10 + 18
	if p.Priority != 100 {
		t.Errorf("Priority = %d, want 100", p.Priority)
	}
	if p.Summary != "Strategy=ContainAndCollect, Severity=80, Confidence=0.90" {
		t.Errorf("Summary = %q", p.Summary)
	}
	if p.Rationale[0] != "Selected strategy ContainAndCollect based on confidence 0.90 and severity 80." {
		t.Errorf("Rationale[0] = %q", p.Rationale[0])
	}
	if p.Rationale[1] != "Asset criticality: 1; privileged identity: false." {
		t.Errorf("Rationale[1] = %q", p.Rationale[1])
	}
	if p.Tags["environment"] != "unknown" || p.Tags["generatedAt"] != "2026-03-01T12:00:00Z" {
		t.Errorf("Tags = %v", p.Tags)
	}
	if p.PlanID != "plan-1" {
		t.Errorf("PlanID = %q", p.PlanID)
	}
}

func TestBuild_ContainAllEntities(t *testing.T) {
	t.Parallel()

	a := mustAlert(t, `{"entities":{"srcIp":"1.2.3.4","username":"alice","hostname":"web-7"},"context":{"environment":"prod"}}`)
	p := fixedRule().Build(a, assess.Assessment{Severity: 60, Confidence: 0.7})

	if p.Strategy != Contain {
		t.Fatalf("Strategy = %s, want Contain", p.Strategy)
	}
	want := []ActionType{BlockIP, DisableUser, IsolateHost, OpenTicket}
	if fmt.Sprint(types(p.Actions)) != fmt.Sprint(want) {
		t.Errorf("actions = %v, want %v", types(p.Actions), want)
	}
	if p.Actions[2].Parameters["host_id"] != "web-7" {
		t.Errorf("host_id = %q, want hostname fallback", p.Actions[2].Parameters["host_id"])
	}
	wantRb := []ActionType{UnisolateHost, EnableUser, UnblockIP}
	if fmt.Sprint(types(p.RollbackActions)) != fmt.Sprint(wantRb) {
		t.Errorf("rollbacks = %v, want %v", types(p.RollbackActions), wantRb)
	}
	if p.Tags["environment"] != "prod" {
		t.Errorf("environment = %q", p.Tags["environment"])
	}
}

func TestBuild_StrategyActions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		alert     string
		as        assess.Assessment
		want      []ActionType
		rationale string
	}{
		{"observe", `{}`, assess.Assessment{Severity: 90, Confidence: 0.1}, []ActionType{OpenTicket}, "Create a tracking ticket."},
		{"notify", `{}`, assess.Assessment{Severity: 40, Confidence: 0.5}, []ActionType{Notify, OpenTicket}, "Notify analysts."},
		{"escalate", `{"context":{"privileged":true}}`, assess.Assessment{Severity: 40, Confidence: 0.5}, []ActionType{Notify, OpenTicket}, "Escalate to human analyst."},
		{"contain without entities", `{}`, assess.Assessment{Severity: 60, Confidence: 0.7}, []ActionType{OpenTicket}, "Create a tracking ticket."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := fixedRule().Build(mustAlert(t, tt.alert), tt.as)
			if fmt.Sprint(types(p.Actions)) != fmt.Sprint(tt.want) {
				t.Errorf("actions = %v, want %v", types(p.Actions), tt.want)
			}
			if p.Actions[0].Rationale != tt.rationale {
				t.Errorf("first rationale = %q, want %q", p.Actions[0].Rationale, tt.rationale)
			}
			if len(p.RollbackActions) != 0 {
				t.Errorf("rollbacks = %v, want none", types(p.RollbackActions))
			}
		})
	}
}

func TestBuild_HugeCriticalitySaturates(t *testing.T) {
	t.Parallel()

	as := assess.Assessment{Severity: 60, Confidence: 0.7}
	tests := []struct {
		name         string
		alert        string
		wantStrategy Strategy
		wantPriority int
	}{
		{"beyond int64", `{"context":{"assetCriticality":1e19}}`, EscalateToHuman, 100},
		{"overflows times ten", `{"context":{"assetCriticality":922337203685477580}}`, EscalateToHuman, 100},
		{"huge", `{"context":{"assetCriticality":1e300}}`, EscalateToHuman, 100},
		{"huge string", `{"context":{"assetCriticality":"1e400"}}`, EscalateToHuman, 100},
		{"huge negative", `{"context":{"assetCriticality":-1e300}}`, Contain, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := fixedRule().Build(mustAlert(t, tt.alert), as)
			if p.Strategy != tt.wantStrategy || p.Priority != tt.wantPriority {
				t.Errorf("plan = %s/%d, want %s/%d", p.Strategy, p.Priority, tt.wantStrategy, tt.wantPriority)
			}
		})
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	a := mustAlert(t, `{"entities":{"srcIp":"1.2.3.4","username":"bob"},"context":{"assetCriticality":2}}`)
	as := assess.Assessment{Severity: 75, Confidence: 0.88}

	r := NewRule()
	p1, _ := r.Plan(context.Background(), a, as)
	p2, _ := r.Plan(context.Background(), a, as)

	if p1.PlanID == p2.PlanID {
		t.Error("plan IDs must be unique per generation")
	}
	p1.PlanID, p2.PlanID = "", ""
	delete(p1.Tags, "generatedAt")
	delete(p2.Tags, "generatedAt")

	b1, _ := json.Marshal(p1)
	b2, _ := json.Marshal(p2)
	if string(b1) != string(b2) {
		t.Errorf("plans differ beyond id/timestamp:\n%s\n%s", b1, b2)
	}
}

func TestRollbacks_Law(t *testing.T) {
	t.Parallel()

	forward := []Action{
		NewAction(BlockIP, "", map[string]string{"src_ip": "a"}),
		NewAction(Notify, "", nil),
		NewAction(IsolateHost, "", map[string]string{"host_id": "h"}),
		NewAction(KillProcess, "", nil),
		NewAction(BlockIP, "", map[string]string{"src_ip": "b"}),
	}
	rb := Rollbacks(forward)

	want := []ActionType{UnblockIP, UnisolateHost, UnblockIP}
	if fmt.Sprint(types(rb)) != fmt.Sprint(want) {
		t.Fatalf("rollbacks = %v, want %v", types(rb), want)
	}
	if rb[0].Parameters["src_ip"] != "b" || rb[2].Parameters["src_ip"] != "a" {
		t.Error("rollbacks must be in reverse forward order")
	}
	if len(rb) > len(forward) {
		t.Error("more rollbacks than forward actions")
	}

	// parameters are copied, not shared
	rb[0].Parameters["src_ip"] = "mutated"
	if forward[4].Parameters["src_ip"] != "b" {
		t.Error("rollback shares parameter map with forward action")
	}

	if got := Rollbacks(nil); got == nil || len(got) != 0 {
		t.Errorf("Rollbacks(nil) = %v, want empty slice", got)
	}
}

func TestNewAction_Metadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		t          ActionType
		risk       int
		impact     int
		reversible bool
	}{
		{BlockIP, 55, 30, true},
		{UnblockIP, 10, 5, false},
		{IsolateHost, 70, 60, true},
		{UnisolateHost, 15, 10, false},
		{DisableUser, 65, 50, true},
		{EnableUser, 15, 10, false},
		{KillProcess, 85, 85, false},
		{QuarantineFile, 85, 85, false},
		{OpenTicket, 5, 5, false},
		{Notify, 5, 5, false},
		{CollectForensics, 35, 20, false},
		{"Reboot", 50, 50, false},
	}
	for _, tt := range tests {
		a := NewAction(tt.t, "r", nil)
		if a.Risk != tt.risk || a.ExpectedImpact != tt.impact || a.Reversible != tt.reversible {
			t.Errorf("NewAction(%s) = %d/%d/%v, want %d/%d/%v", tt.t, a.Risk, a.ExpectedImpact, a.Reversible, tt.risk, tt.impact, tt.reversible)
		}
		if a.Parameters == nil {
			t.Errorf("NewAction(%s) left Parameters nil", tt.t)
		}
	}
	if Known("Reboot") {
		t.Error("Reboot should not be a known action type")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	in := `{"strategy":"Contain","priority":140,"summary":"s",
		"actions":[{"type":"BlockIp","parameters":{"src_ip":"9.9.9.9","port":22}},{"type":"OpenTicket","risk":-3}],
		"rollbackActions":[{"type":"UnblockIp"},{"type":"EnableUser"}],
		"rationale":["why"],"tags":{"env":"prod","n":1}}`

	p, err := ParseJSON(in)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if p.PlanID == "" {
		t.Error("missing planId must be stamped")
	}
	if p.Priority != 100 {
		t.Errorf("Priority = %d, want clamped 100", p.Priority)
	}
	if p.Actions[0].Risk != 55 || !p.Actions[0].Reversible {
		t.Errorf("BlockIp metadata not filled from catalog: %+v", p.Actions[0])
	}
	if p.Actions[0].Parameters["port"] != "22" {
		t.Errorf("numeric parameter = %q, want \"22\"", p.Actions[0].Parameters["port"])
	}
	if p.Actions[1].Risk != 0 {
		t.Errorf("negative risk not clamped: %d", p.Actions[1].Risk)
	}
	if len(p.RollbackActions) != 1 || p.RollbackActions[0].Type != UnblockIP {
		t.Errorf("rollbacks = %v, want re-derived [UnblockIp]", types(p.RollbackActions))
	}
	if p.Tags["n"] != "1" {
		t.Errorf("tags = %v", p.Tags)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"garbage", "no json here"},
		{"missing strategy", `{"actions":[]}`},
		{"unknown strategy", `{"strategy":"Nuke","actions":[]}`},
		{"unknown action", `{"strategy":"Contain","actions":[{"type":"FormatDisk"}]}`},
		{"wrong types", `{"strategy":"Contain","actions":"BlockIp"}`},
		{"array root", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseJSON(tt.in); !errors.Is(err, ErrNoResult) {
				t.Errorf("ParseJSON(%q) err = %v, want ErrNoResult", tt.in, err)
			}
		})
	}
}

type stubPlanner struct {
	name  string
	plan  *Plan
	err   error
	errs  []error
	calls int
}

func (s *stubPlanner) Name() string { return s.name }

func (s *stubPlanner) Plan(context.Context, alert.Alert, assess.Assessment) (*Plan, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
		return s.plan, nil
	}
	return s.plan, s.err
}

func TestHybrid_LocalFirst(t *testing.T) {
	t.Parallel()

	local := &stubPlanner{name: "local", plan: &Plan{PlanID: "L"}}
	remote := &stubPlanner{name: "remote", plan: &Plan{PlanID: "R"}}
	p, src, err := NewHybrid(local, remote, Hooks{}).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if err != nil || p.PlanID != "L" || src != "local" {
		t.Fatalf("got %v from %s err %v, want local", p, src, err)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times", remote.calls)
	}
}

func TestHybrid_RemoteOnLocalFailure(t *testing.T) {
	t.Parallel()

	var outcomes []string
	hooks := Hooks{OnAttempt: func(s, o string, _ time.Duration) { outcomes = append(outcomes, s+"="+o) }}

	local := &stubPlanner{name: "local", err: fmt.Errorf("%w: bad", ErrNoResult)}
	remote := &stubPlanner{name: "remote", plan: &Plan{PlanID: "R"}}
	p, src, err := NewHybrid(local, remote, hooks).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if err != nil || p.PlanID != "R" || src != "remote" {
		t.Fatalf("got %v from %s err %v, want remote", p, src, err)
	}
	if fmt.Sprint(outcomes) != "[local=no_result remote=ok]" {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestHybrid_LocalRetriedLast(t *testing.T) {
	t.Parallel()

	local := &stubPlanner{name: "local", plan: &Plan{PlanID: "L2"}, errs: []error{context.DeadlineExceeded, nil}}
	remote := &stubPlanner{name: "remote", err: fmt.Errorf("%w: down", ErrNoResult)}
	p, src, err := NewHybrid(local, remote, Hooks{}).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if err != nil || p.PlanID != "L2" || src != "local" {
		t.Fatalf("got %v from %s err %v, want second local attempt", p, src, err)
	}
	if local.calls != 2 {
		t.Errorf("local calls = %d, want 2", local.calls)
	}
}

func TestHybrid_FinalErrorPropagates(t *testing.T) {
	t.Parallel()

	local := &stubPlanner{name: "local", err: fmt.Errorf("%w: never", ErrNoResult)}
	_, _, err := NewHybrid(local, nil, Hooks{}).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
	if local.calls != 2 {
		t.Errorf("local calls = %d, want 2", local.calls)
	}
}

func TestHybrid_NonRecoverableStopsChain(t *testing.T) {
	t.Parallel()

	boom := errors.New("bug")
	local := &stubPlanner{name: "local", err: boom}
	remote := &stubPlanner{name: "remote", plan: &Plan{}}
	_, _, err := NewHybrid(local, remote, Hooks{}).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want bug", err)
	}
	if remote.calls != 0 {
		t.Error("remote must not run after a non-recoverable local error")
	}
}

func TestHybrid_NilPlanIsNoResult(t *testing.T) {
	t.Parallel()

	local := &stubPlanner{name: "local"}
	_, _, err := NewHybrid(local, nil, Hooks{}).PlanFrom(context.Background(), alert.Alert{}, assess.Assessment{})
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestRemote_Plan(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/plan" {
			t.Errorf("path = %s, want /v1/plan", r.URL.Path)
		}
		gotAuth = r.Header.Get("X-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"plan":{"planId":"remote-1","strategy":"Contain","actions":[{"type":"IsolateHost","parameters":{"host_id":"h1"}}]}}`)
	}))
	defer srv.Close()

	r := NewRemote(RemoteConfig{Endpoint: srv.URL + "/", APIKey: "k1", APIKeyHeader: "X-Api-Key", APIKeyPrefix: "", Timeout: time.Second})
	p, err := r.Plan(context.Background(), mustAlert(t, `{"context":{"environment":"lab"}}`), assess.Assessment{Severity: 60, Confidence: 0.7})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p.PlanID != "remote-1" || p.Strategy != Contain {
		t.Errorf("plan = %+v", p)
	}
	if len(p.RollbackActions) != 1 || p.RollbackActions[0].Type != UnisolateHost {
		t.Errorf("rollbacks = %v", types(p.RollbackActions))
	}
	if gotAuth != "k1" {
		t.Errorf("api key header = %q, want trimmed \"k1\"", gotAuth)
	}
	planning, _ := gotBody["planning"].(map[string]any)
	if planning["environment"] != "lab" || planning["dryRun"] != false || planning["nowUtc"] == "" {
		t.Errorf("planning = %v", planning)
	}
}

func TestRemote_BareBodyAndBearer(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"strategy":"NotifyOnly","actions":[{"type":"Notify"}]}`)
	}))
	defer srv.Close()

	r := NewRemote(RemoteConfig{Endpoint: srv.URL, APIKey: "secret", APIKeyPrefix: "Bearer"})
	p, err := r.Plan(context.Background(), nil, assess.Assessment{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p.Strategy != NotifyOnly {
		t.Errorf("Strategy = %s", p.Strategy)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestRemote_FailuresAreNoResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "down", http.StatusBadGateway) }},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "<html>") }},
		{"schema violation", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, `{"plan":{"strategy":"Panic"}}`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewRemote(RemoteConfig{Endpoint: srv.URL}).Plan(context.Background(), alert.Alert{}, assess.Assessment{})
			if !errors.Is(err, ErrNoResult) {
				t.Errorf("err = %v, want ErrNoResult", err)
			}
		})
	}

	_, err := NewRemote(RemoteConfig{Endpoint: "http://127.0.0.1:1"}).Plan(context.Background(), alert.Alert{}, assess.Assessment{})
	if !assess.Recoverable(err) {
		t.Errorf("unreachable endpoint err = %v, want recoverable", err)
	}
}

func TestRemote_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewRemote(RemoteConfig{Endpoint: srv.URL}).Plan(ctx, alert.Alert{}, assess.Assessment{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if !strings.Contains(fmt.Sprint(err), "deadline") {
		t.Errorf("err = %v", err)
	}
}
