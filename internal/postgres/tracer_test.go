package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestShortenFuncName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full path", "github.com/linnemanlabs/warden/internal/triage/pgstore.(*Store).Get", "(*Store).Get"},
		{"already short", "(*Store).Get", "Get"},
		{"empty string", "", ""},
		{"no dots", "main", "main"},
		{"no slashes", "pgstore.(*Store).Put", "(*Store).Put"},
		{"single segment", "foo.Bar", "Bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := shortenFuncName(tt.in)
			if got != tt.want {
				t.Errorf("shortenFuncName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompactSQL(t *testing.T) {
	t.Parallel()

	got := compactSQL("SELECT id,\n\t  plan\nFROM plan_records  WHERE id = $1")
	want := "SELECT id, plan FROM plan_records WHERE id = $1"
	if got != want {
		t.Errorf("compactSQL = %q, want %q", got, want)
	}
}

func TestWithHTTPMethod(t *testing.T) {
	t.Parallel()

	if got := httpMethodFromContext(WithHTTPMethod(context.Background(), "POST")); got != "POST" {
		t.Errorf("httpMethodFromContext = %q, want POST", got)
	}
	if got := httpMethodFromContext(WithHTTPMethod(context.Background(), "")); got != "" {
		t.Errorf("httpMethodFromContext = %q, want empty", got)
	}
}

type observed struct {
	method, route, outcome string
	dur                    time.Duration
}

// TestQueryTracer_Observer swaps the process-wide observer, so it is not
// parallel with other observer tests.
func TestQueryTracer_Observer(t *testing.T) {
	defer SetQueryObserver(nil)

	var got []observed
	SetQueryObserver(QueryObserverFunc(func(_ context.Context, method, route, outcome string, dur time.Duration) {
		got = append(got, observed{method, route, outcome, dur})
	}))

	tr := wrapQueryTracer(nil)
	ctx := WithHTTPMethod(context.Background(), "GET")

	qctx := tr.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1", Args: []any{1}})
	tr.TraceQueryEnd(qctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	qctx = tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "INSERT"})
	tr.TraceQueryEnd(qctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	if len(got) != 2 {
		t.Fatalf("observations = %d, want 2", len(got))
	}
	if got[0].method != "GET" || got[0].route != "unknown" || got[0].outcome != "ok" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].method != "UNKNOWN" || got[1].outcome != "error" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestQueryTracer_EndWithoutStart(t *testing.T) {
	t.Parallel()

	// must not panic when the start hook never ran
	wrapQueryTracer(nil).TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}
