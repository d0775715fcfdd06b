package processor

import (
	"context"

	"sbt-engine/internal/store"
	"sbt-engine/internal/workers"

	"github.com/google/uuid"
)

// IssuanceStore is the slice of the durable store the processor needs.
type IssuanceStore interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (store.Template, error)
	GetIssuedToken(ctx context.Context, id uuid.UUID) (store.IssuedToken, error)
	UpsertIssuedToken(ctx context.Context, t store.IssuedToken) (store.IssuedToken, error)
	ResetMintForRetry(ctx context.Context, id uuid.UUID) (store.IssuedToken, error)
	ListIssuedTokens(ctx context.Context) ([]store.IssuedToken, error)
	ListIssuedTokensByRecipient(ctx context.Context, address string) ([]store.IssuedToken, error)
	RecordPaymentEvent(ctx context.Context, e store.PaymentEvent) (store.PaymentEvent, error)
	CountPaymentEvents(ctx context.Context, address string, templateID uuid.UUID) (int, error)
}

// MintSubmitter enqueues asynchronous mint attempts; implemented by the
// worker pool.
type MintSubmitter interface {
	Submit(job workers.MintJob) error
}
