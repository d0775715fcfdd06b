package store

// IssuePattern is the closed set of issuance rules a template can carry.
type IssuePattern string

const (
	PatternPerPayment  IssuePattern = "per_payment"
	PatternAfterCount  IssuePattern = "after_count"
	PatternTimePeriod  IssuePattern = "time_period"
	PatternPeriodRange IssuePattern = "period_range"
)

// Valid reports whether p is a known issuance pattern.
func (p IssuePattern) Valid() bool {
	switch p {
	case PatternPerPayment, PatternAfterCount, PatternTimePeriod, PatternPeriodRange:
		return true
	}
	return false
}

// Template ENUMs
const (
	TemplateStatusActive   = "active"
	TemplateStatusArchived = "archived"
)

// Issued token lifecycle ENUMs
const (
	TokenStatusActive   = "active"
	TokenStatusRedeemed = "redeemed"
)

// Mint status ENUMs; transitions are monotonic: pending -> {success | failed}
const (
	MintStatusPending = "pending"
	MintStatusSuccess = "success"
	MintStatusFailed  = "failed"
)

// Payment event source ENUMs
const (
	PaymentSourceStripe = "stripe"
	PaymentSourceManual = "manual"
)
