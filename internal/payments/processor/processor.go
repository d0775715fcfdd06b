package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	issuance "sbt-engine/internal/issuance/processor"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
)

// Issuer is the slice of the issuance processor the webhook needs.
type Issuer interface {
	EvaluateAndIssue(ctx context.Context, params issuance.IssueParams) (store.IssuedToken, error)
}

// PaymentProcessor turns Stripe payment events into qualifying events for
// the issuance evaluator.
type PaymentProcessor struct {
	issuer        Issuer
	WebhookSecret string
	logger        *observability.Logger
}

func New(issuer Issuer, webhookSecret string, logger *observability.Logger) PaymentProcessor {
	return PaymentProcessor{
		issuer:        issuer,
		WebhookSecret: webhookSecret,
		logger:        logger,
	}
}

// issuanceMetadata is the metadata a checkout session or payment intent must
// carry to reach the evaluator.
type issuanceMetadata struct {
	TemplateID       uuid.UUID
	RecipientAddress string
}

func parseMetadata(metadata map[string]string) (issuanceMetadata, error) {
	rawTemplate, ok := metadata["template_id"]
	if !ok {
		return issuanceMetadata{}, errors.New("metadata is missing template_id")
	}
	templateID, err := uuid.Parse(rawTemplate)
	if err != nil {
		return issuanceMetadata{}, fmt.Errorf("metadata template_id is not a uuid: %w", err)
	}
	wallet, ok := metadata["wallet_address"]
	if !ok || wallet == "" {
		return issuanceMetadata{}, errors.New("metadata is missing wallet_address")
	}
	return issuanceMetadata{TemplateID: templateID, RecipientAddress: wallet}, nil
}

// HandleWebhook routes a verified Stripe event. Events without issuance
// metadata are acknowledged and skipped so unrelated Stripe traffic on the
// same account never errors the webhook.
func (p *PaymentProcessor) HandleWebhook(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return p.handleQualifyingPayment(ctx, session.ID, session.Metadata)
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return p.handleQualifyingPayment(ctx, paymentIntent.ID, paymentIntent.Metadata)
	default:
		p.logger.Info(ctx, fmt.Sprintf("ignoring stripe event type %s", event.Type))
		return nil
	}
}

func (p *PaymentProcessor) handleQualifyingPayment(ctx context.Context, paymentID string, metadata map[string]string) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "payment_id", Value: paymentID})

	meta, err := parseMetadata(metadata)
	if err != nil {
		p.logger.WarnWithError(ctx, "stripe event carries no issuance metadata, skipping", err)
		return nil
	}

	_, err = p.issuer.EvaluateAndIssue(ctx, issuance.IssueParams{
		TemplateID:       meta.TemplateID,
		RecipientAddress: meta.RecipientAddress,
		SourcePaymentID:  &paymentID,
		Source:           store.PaymentSourceStripe,
	})
	if err != nil {
		// Rejections are expected outcomes (below threshold, duplicate
		// replay); the webhook still acknowledges the event.
		var rejection *issuance.RejectionError
		if errors.As(err, &rejection) {
			p.logger.Info(ctx, fmt.Sprintf("payment recorded without mint: %s", rejection.Reason))
			return nil
		}
		return fmt.Errorf("failed to issue for payment: %w", err)
	}
	return nil
}
