// Package evaluator decides whether a reward should be issued for a
// qualifying event. Evaluate is pure: it reads the template, the recipient's
// token history and an evaluation context, and returns a Decision. All
// mutation happens in the caller.
package evaluator

import (
	"fmt"
	"time"

	"sbt-engine/internal/store"

	"github.com/google/uuid"
)

// DecisionKind enumerates evaluation outcomes.
type DecisionKind string

const (
	DecisionMint       DecisionKind = "mint"
	DecisionAccumulate DecisionKind = "accumulate"
	DecisionReject     DecisionKind = "reject"
)

// Decision is the evaluator's verdict for one qualifying event.
type Decision struct {
	Kind DecisionKind

	// Mint fields
	InitialStamps  int
	TerminalStatus string

	// Accumulate fields
	ExistingTokenID uuid.UUID

	// Reject fields
	Reason   string
	Progress string // "current/threshold" for below-threshold rejections
}

// Context carries the evaluation inputs that are not part of the template or
// token history.
type Context struct {
	Now time.Time

	// QualifyingEvents is the count of qualifying events recorded for the
	// (recipient, template) pair, including the event being evaluated.
	QualifyingEvents int
}

// Evaluate applies the template's issuance pattern to the recipient's
// history. The pattern set is closed; an unknown pattern is rejected.
func Evaluate(tpl store.Template, recipient string, history []store.IssuedToken, evalCtx Context) Decision {
	switch tpl.IssuePattern {
	case store.PatternPerPayment:
		return evaluatePerPayment(tpl, recipient, history)
	case store.PatternAfterCount:
		return evaluateAfterCount(tpl, recipient, history, evalCtx)
	case store.PatternTimePeriod:
		return evaluateTimePeriod(tpl, recipient, history, evalCtx)
	case store.PatternPeriodRange:
		return evaluatePeriodRange(tpl, recipient, history, evalCtx)
	default:
		return Decision{Kind: DecisionReject, Reason: fmt.Sprintf("unknown issue pattern %q", tpl.IssuePattern)}
	}
}

// evaluatePerPayment accumulates stamps on the most recent active token for
// the pair; with no active token a fresh one starts at one stamp.
func evaluatePerPayment(tpl store.Template, recipient string, history []store.IssuedToken) Decision {
	if active := mostRecentActive(tpl.ID, recipient, history); active != nil {
		return Decision{Kind: DecisionAccumulate, ExistingTokenID: active.ID}
	}

	status := store.TokenStatusActive
	if tpl.MaxStamps <= 1 {
		// A single-stamp card is complete at issuance.
		status = store.TokenStatusRedeemed
	}
	return Decision{Kind: DecisionMint, InitialStamps: 1, TerminalStatus: status}
}

// evaluateAfterCount issues exactly one fully-stamped, redeemed token when
// the qualifying-event count reaches the threshold. The issuance itself is
// the reward, not an incremental counter.
func evaluateAfterCount(tpl store.Template, recipient string, history []store.IssuedToken, evalCtx Context) Decision {
	for i := range history {
		if history[i].TemplateID == tpl.ID && history[i].RecipientAddress == recipient {
			return Decision{Kind: DecisionReject, Reason: "reward already issued for this recipient"}
		}
	}

	if evalCtx.QualifyingEvents < tpl.Threshold {
		return Decision{
			Kind:     DecisionReject,
			Reason:   "below qualifying-event threshold",
			Progress: fmt.Sprintf("%d/%d", evalCtx.QualifyingEvents, tpl.Threshold),
		}
	}

	return Decision{
		Kind:           DecisionMint,
		InitialStamps:  tpl.MaxStamps,
		TerminalStatus: store.TokenStatusRedeemed,
	}
}

// evaluateTimePeriod behaves like per-payment inside the window
// [createdAt, createdAt+days]; both boundaries are inclusive.
func evaluateTimePeriod(tpl store.Template, recipient string, history []store.IssuedToken, evalCtx Context) Decision {
	if tpl.TimePeriodDays == nil {
		return Decision{Kind: DecisionReject, Reason: "template has no time period configured"}
	}
	start := tpl.CreatedAt
	end := tpl.CreatedAt.AddDate(0, 0, *tpl.TimePeriodDays)
	if outsideWindow(evalCtx.Now, start, end) {
		return Decision{Kind: DecisionReject, Reason: "outside issuance window"}
	}
	return evaluatePerPayment(tpl, recipient, history)
}

// evaluatePeriodRange behaves like per-payment inside the explicit
// [periodStart, periodEnd] window; both boundaries are inclusive.
func evaluatePeriodRange(tpl store.Template, recipient string, history []store.IssuedToken, evalCtx Context) Decision {
	if tpl.PeriodStart == nil || tpl.PeriodEnd == nil {
		return Decision{Kind: DecisionReject, Reason: "template has no period range configured"}
	}
	if outsideWindow(evalCtx.Now, *tpl.PeriodStart, *tpl.PeriodEnd) {
		return Decision{Kind: DecisionReject, Reason: "outside issuance window"}
	}
	return evaluatePerPayment(tpl, recipient, history)
}

func outsideWindow(now, start, end time.Time) bool {
	return now.Before(start) || now.After(end)
}

// mostRecentActive returns the newest active token for the pair, or nil.
func mostRecentActive(templateID uuid.UUID, recipient string, history []store.IssuedToken) *store.IssuedToken {
	var found *store.IssuedToken
	for i := range history {
		t := &history[i]
		if t.TemplateID != templateID || t.RecipientAddress != recipient || t.Status != store.TokenStatusActive {
			continue
		}
		if found == nil || t.IssuedAt.After(found.IssuedAt) {
			found = t
		}
	}
	return found
}
