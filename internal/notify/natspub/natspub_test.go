package natspub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/plan"
	"github.com/linnemanlabs/warden/internal/triage"
)

func testRecord() *triage.PlanRecord {
	return &triage.PlanRecord{
		ID:          "01JNPLAN",
		Fingerprint: "fp-1",
		PlanSource:  plan.RuleName,
		Plan:        plan.Plan{PlanID: "01JNPLAN", Strategy: plan.Contain, Priority: 72},
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strategy plan.Strategy
		want     string
	}{
		{plan.Contain, "warden.plans.Contain"},
		{plan.EscalateToHuman, "warden.plans.EscalateToHuman"},
		{"", "warden.plans.unknown"},
	}
	for _, tt := range tests {
		rec := &triage.PlanRecord{Plan: plan.Plan{Strategy: tt.strategy}}
		if got := Subject(DefaultSubject, rec); got != tt.want {
			t.Errorf("Subject(%q) = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	p := &Publisher{subject: "soc.plans", logger: log.Nop()}
	msg, err := p.message(testRecord())
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if msg.Subject != "soc.plans.Contain" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for k, want := range map[string]string{
		"x-plan-id":     "01JNPLAN",
		"x-strategy":    "Contain",
		"x-priority":    "72",
		nats.MsgIdHdr:   "01JNPLAN",
		"x-fingerprint": "fp-1",
	} {
		if got := msg.Header.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}

	var decoded triage.PlanRecord
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.ID != "01JNPLAN" || decoded.Plan.Priority != 72 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPublisher_RoundTrip(t *testing.T) {
	url := os.Getenv("WARDEN_TEST_NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	// Try to connect to NATS, skip test if not available
	probe, err := nats.Connect(url, nats.Timeout(2*time.Second))
	if err != nil {
		t.Skip("NATS server not available, skipping test")
	}
	defer probe.Close()

	sub, err := probe.SubscribeSync("warden.test.>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := probe.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	p, err := New(url, "warden.test", log.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = p.Close() }()

	if err := p.Send(context.Background(), testRecord()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if msg.Subject != "warden.test.Contain" || msg.Header.Get("x-plan-id") != "01JNPLAN" {
		t.Errorf("received %s with headers %v", msg.Subject, msg.Header)
	}
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	if _, err := New("nats://127.0.0.1:1", "", nil); err == nil {
		t.Fatal("expected connect error for unreachable server")
	}
}
