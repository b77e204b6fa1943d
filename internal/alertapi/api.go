// Package alertapi exposes the triage service over JSON HTTP endpoints.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/record"
	"github.com/linnemanlabs/warden/internal/triage"
)

// TriageService defines the business operations alertapi needs.
type TriageService interface {
	Score(ctx context.Context, a alert.Alert) (*triage.ScoreResult, error)
	ScoreBatch(ctx context.Context, alerts []alert.Alert) ([]triage.ScoreResult, error)
	Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*triage.PlanRecord, error)
	Triage(ctx context.Context, a alert.Alert) (*triage.TriageResult, error)
	GetPlan(ctx context.Context, id string) (*triage.PlanRecord, bool, error)
	LatestPlan(ctx context.Context, fingerprint string) (*triage.PlanRecord, bool, error)
	Scan(ctx context.Context, r record.Reader) (*triage.ScanResult, error)
	ResponseActions(label string) []string
	Stats(ctx context.Context) triage.Stats
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", a.handleScore)
		r.Post("/score/batch", a.handleScoreBatch)
		r.Post("/plan", a.handlePlan)
		r.Post("/triage", a.handleTriage)
		r.Get("/plans", a.handleLatestPlan)
		r.Get("/plans/{id}", a.handleGetPlan)
		r.Post("/scan", a.handleScan)
		r.Get("/response-actions/{severity}", a.handleResponseActions)
		r.Get("/stats", a.handleStats)
	})
}

const (
	errInvalidPayload = `{"error":"invalid payload"}`
	errInternal       = `{"error":"internal error"}`
	errNotFound       = `{"error":"not found"}`
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}
