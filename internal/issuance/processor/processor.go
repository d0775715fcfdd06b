package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sbt-engine/internal/issuance/evaluator"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"
	"sbt-engine/internal/workers"

	"github.com/google/uuid"
)

var ErrTemplateNotActive = errors.New("template is not active")

// RejectionError reports an issuance the evaluator turned down. It carries
// the progress string for below-threshold rejections.
type RejectionError struct {
	Reason   string
	Progress string
}

func (e *RejectionError) Error() string {
	if e.Progress != "" {
		return fmt.Sprintf("issuance rejected: %s (%s)", e.Reason, e.Progress)
	}
	return fmt.Sprintf("issuance rejected: %s", e.Reason)
}

// IssuanceProcessor evaluates qualifying events and owns the resulting token
// rows. The local row is written before the mint job is enqueued, so the
// reward record exists even if minting later fails.
type IssuanceProcessor struct {
	store  IssuanceStore
	pool   MintSubmitter
	logger *observability.Logger
}

func New(issuanceStore IssuanceStore, pool MintSubmitter, logger *observability.Logger) IssuanceProcessor {
	return IssuanceProcessor{
		store:  issuanceStore,
		pool:   pool,
		logger: logger,
	}
}

// IssueParams describes one qualifying event reaching the evaluator.
type IssueParams struct {
	TemplateID       uuid.UUID
	RecipientAddress string
	SourcePaymentID  *string
	Source           string
}

// EvaluateAndIssue records the qualifying event, runs the evaluator and
// applies its decision. On Mint the row is persisted with mint status
// pending and an asynchronous pipeline attempt is enqueued; on Accumulate
// the existing token gains a stamp; on Reject a RejectionError is returned.
func (p *IssuanceProcessor) EvaluateAndIssue(ctx context.Context, params IssueParams) (store.IssuedToken, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "template_id", Value: params.TemplateID.String()},
		observability.Field{Key: "recipient", Value: params.RecipientAddress},
	)

	tpl, err := p.store.GetTemplate(ctx, params.TemplateID)
	if err != nil {
		return store.IssuedToken{}, err
	}
	if tpl.Status != store.TemplateStatusActive {
		return store.IssuedToken{}, ErrTemplateNotActive
	}

	event := store.PaymentEvent{
		RecipientAddress: params.RecipientAddress,
		TemplateID:       params.TemplateID,
		Source:           params.Source,
	}
	if params.SourcePaymentID != nil {
		// Reuse the external payment id so a replayed webhook is a no-op.
		event.ID = *params.SourcePaymentID
	}
	if _, err := p.store.RecordPaymentEvent(ctx, event); err != nil {
		return store.IssuedToken{}, err
	}

	count, err := p.store.CountPaymentEvents(ctx, params.RecipientAddress, params.TemplateID)
	if err != nil {
		return store.IssuedToken{}, err
	}
	history, err := p.store.ListIssuedTokensByRecipient(ctx, params.RecipientAddress)
	if err != nil {
		return store.IssuedToken{}, err
	}

	decision := evaluator.Evaluate(tpl, params.RecipientAddress, history, evaluator.Context{
		Now:              time.Now().UTC(),
		QualifyingEvents: count,
	})

	switch decision.Kind {
	case evaluator.DecisionMint:
		return p.mint(ctx, tpl, params, decision)
	case evaluator.DecisionAccumulate:
		return p.accumulate(ctx, decision.ExistingTokenID)
	default:
		return store.IssuedToken{}, &RejectionError{Reason: decision.Reason, Progress: decision.Progress}
	}
}

func (p *IssuanceProcessor) mint(ctx context.Context, tpl store.Template, params IssueParams, decision evaluator.Decision) (store.IssuedToken, error) {
	token := store.IssuedToken{
		ID:               uuid.New(),
		TemplateID:       tpl.ID,
		RecipientAddress: params.RecipientAddress,
		CurrentStamps:    decision.InitialStamps,
		MaxStamps:        tpl.MaxStamps,
		Status:           decision.TerminalStatus,
		MintStatus:       store.MintStatusPending,
		SourcePaymentID:  params.SourcePaymentID,
		IssuedAt:         time.Now().UTC(),
	}

	token, err := p.store.UpsertIssuedToken(ctx, token)
	if err != nil {
		return store.IssuedToken{}, err
	}

	if err := p.pool.Submit(workers.MintJob{TokenID: token.ID}); err != nil {
		// The row stays pending; the merchant can retry the mint manually.
		p.logger.WarnWithError(ctx, "failed to enqueue mint attempt", err)
	}
	return token, nil
}

func (p *IssuanceProcessor) accumulate(ctx context.Context, tokenID uuid.UUID) (store.IssuedToken, error) {
	token, err := p.store.GetIssuedToken(ctx, tokenID)
	if err != nil {
		return store.IssuedToken{}, err
	}

	token.CurrentStamps++
	if token.CurrentStamps >= token.MaxStamps {
		token.Status = store.TokenStatusRedeemed
	}
	return p.store.UpsertIssuedToken(ctx, token)
}

// Progress is the issuance progress for one (recipient, template) pair.
type Progress struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// GetIssuanceProgress reports how close a recipient is to the next reward.
func (p *IssuanceProcessor) GetIssuanceProgress(ctx context.Context, recipient string, templateID uuid.UUID) (Progress, error) {
	tpl, err := p.store.GetTemplate(ctx, templateID)
	if err != nil {
		return Progress{}, err
	}

	if tpl.IssuePattern == store.PatternAfterCount {
		count, err := p.store.CountPaymentEvents(ctx, recipient, templateID)
		if err != nil {
			return Progress{}, err
		}
		if count > tpl.Threshold {
			count = tpl.Threshold
		}
		return Progress{Current: count, Max: tpl.Threshold}, nil
	}

	history, err := p.store.ListIssuedTokensByRecipient(ctx, recipient)
	if err != nil {
		return Progress{}, err
	}
	for _, t := range history {
		if t.TemplateID == templateID && t.Status == store.TokenStatusActive {
			return Progress{Current: t.CurrentStamps, Max: tpl.MaxStamps}, nil
		}
	}
	return Progress{Current: 0, Max: tpl.MaxStamps}, nil
}

// RetryMint re-enqueues a pipeline attempt for a pending or failed mint.
func (p *IssuanceProcessor) RetryMint(ctx context.Context, tokenID uuid.UUID) (store.IssuedToken, error) {
	token, err := p.store.GetIssuedToken(ctx, tokenID)
	if err != nil {
		return store.IssuedToken{}, err
	}

	switch token.MintStatus {
	case store.MintStatusSuccess:
		return store.IssuedToken{}, fmt.Errorf("%w: mint already succeeded", store.ErrConflict)
	case store.MintStatusFailed:
		token, err = p.store.ResetMintForRetry(ctx, tokenID)
		if err != nil {
			return store.IssuedToken{}, err
		}
	}

	if err := p.pool.Submit(workers.MintJob{TokenID: token.ID}); err != nil {
		return store.IssuedToken{}, fmt.Errorf("failed to enqueue mint retry: %w", err)
	}
	return token, nil
}

// ListTokens returns the full issued-token catalog.
func (p *IssuanceProcessor) ListTokens(ctx context.Context) ([]store.IssuedToken, error) {
	return p.store.ListIssuedTokens(ctx)
}

// ListTokensByRecipient returns all token rows for one wallet.
func (p *IssuanceProcessor) ListTokensByRecipient(ctx context.Context, address string) ([]store.IssuedToken, error) {
	return p.store.ListIssuedTokensByRecipient(ctx, address)
}
