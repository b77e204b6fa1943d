package triage

import "context"

// Store is the persistence interface for plan records.
type Store interface {
	Get(ctx context.Context, id string) (*PlanRecord, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*PlanRecord, bool, error)
	Put(ctx context.Context, rec *PlanRecord) error
}

// Notifier delivers plan records to an external sink.
type Notifier interface {
	Name() string
	Send(ctx context.Context, rec *PlanRecord) error
}
