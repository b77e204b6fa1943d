// Package triage is the business boundary for Warden. Service ties the
// assessor and planner chains, the assessment cache, the heuristic scanner,
// plan persistence, and notifications together. Store is the persistence
// interface for plan records; memstore and pgstore implement it.
package triage
