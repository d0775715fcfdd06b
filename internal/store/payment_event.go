package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sqlRecordPaymentEvent = `
INSERT INTO payment_events (id, recipient_address, template_id, source, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`

// RecordPaymentEvent records one qualifying event. The insert is idempotent
// by event id, so a replayed payment webhook does not inflate counts.
func (s *Store) RecordPaymentEvent(ctx context.Context, e PaymentEvent) (PaymentEvent, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.RecipientAddress == "" {
		return PaymentEvent{}, fmt.Errorf("%w: recipient address is required", ErrValidation)
	}
	if e.Source == "" {
		e.Source = PaymentSourceManual
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, sqlRecordPaymentEvent,
		e.ID,
		e.RecipientAddress,
		e.TemplateID,
		e.Source,
		e.OccurredAt)
	if err != nil {
		return PaymentEvent{}, fmt.Errorf("failed to record payment event: %w", err)
	}

	s.mirrorPut(ctx, mirrorKindPayment, e.ID, e)
	return e, nil
}

const sqlCountPaymentEvents = `
SELECT COUNT(*) FROM payment_events
WHERE recipient_address = $1 AND template_id = $2
`

// CountPaymentEvents returns the number of qualifying events recorded for a
// (recipient, template) pair.
func (s *Store) CountPaymentEvents(ctx context.Context, address string, templateID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountPaymentEvents, address, templateID)
	if err != nil {
		return 0, fmt.Errorf("failed to count payment events: %w", err)
	}
	return count, nil
}
