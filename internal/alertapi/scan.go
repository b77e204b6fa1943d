package alertapi

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/warden/internal/record"
)

// handleScan runs the heuristic catalog over a CSV record body.
func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	rd, err := record.NewCSVReader(r.Body)
	if err != nil {
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}

	res, err := a.svc.Scan(r.Context(), rd)
	if err != nil {
		// a malformed row surfaces from the reader mid-scan
		a.logger.Warn(r.Context(), "scan rejected", "err", err)
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("warden.scan.records", res.Stats.Records),
		attribute.Int("warden.scan.matches", res.Stats.Matches),
	)
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleResponseActions(w http.ResponseWriter, r *http.Request) {
	severity := strings.ToLower(chi.URLParam(r, "severity"))
	writeJSON(w, http.StatusOK, map[string]any{
		"severity": severity,
		"actions":  a.svc.ResponseActions(severity),
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Stats(r.Context()))
}
