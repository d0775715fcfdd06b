package store

import (
	"time"

	"github.com/google/uuid"
)

// Template is a merchant-authored issuance rule plus its visual representation.
type Template struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	ShopID            string       `db:"shop_id" json:"shopId"`
	Name              string       `db:"name" json:"name"`
	IssuePattern      IssuePattern `db:"issue_pattern" json:"issuePattern"`
	MaxStamps         int          `db:"max_stamps" json:"maxStamps"`
	Threshold         int          `db:"threshold" json:"threshold"`
	TimePeriodDays    *int         `db:"time_period_days" json:"timePeriodDays,omitempty"`
	PeriodStart       *time.Time   `db:"period_start" json:"periodStart,omitempty"`
	PeriodEnd         *time.Time   `db:"period_end" json:"periodEnd,omitempty"`
	RewardDescription string       `db:"reward_description" json:"rewardDescription"`
	ImageID           *uuid.UUID   `db:"image_id" json:"imageId,omitempty"`
	Status            string       `db:"status" json:"status"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
}

// IssuedToken is the local ledger record for one reward granted (or attempted).
// The row is created before any network call and is never deleted; the minting
// pipeline advances mint_status in place.
type IssuedToken struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	TemplateID          uuid.UUID  `db:"template_id" json:"templateId"`
	RecipientAddress    string     `db:"recipient_address" json:"recipientAddress"`
	CurrentStamps       int        `db:"current_stamps" json:"currentStamps"`
	MaxStamps           int        `db:"max_stamps" json:"maxStamps"`
	Status              string     `db:"status" json:"status"`
	MintStatus          string     `db:"mint_status" json:"mintStatus"`
	FailReason          *string    `db:"fail_reason" json:"failReason,omitempty"`
	MintError           *string    `db:"mint_error" json:"mintError,omitempty"`
	NeedsMetadataRepair bool       `db:"needs_metadata_repair" json:"needsMetadataRepair"`
	TxHash              *string    `db:"tx_hash" json:"txHash,omitempty"`
	TokenID             *int64     `db:"token_id" json:"tokenId,omitempty"`
	ChainID             *int64     `db:"chain_id" json:"chainId,omitempty"`
	SourcePaymentID     *string    `db:"source_payment_id" json:"sourcePaymentId,omitempty"`
	IssuedAt            time.Time  `db:"issued_at" json:"issuedAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// ImageBlob is a stored reward image, retained independently of its template
// so it survives template churn and rides along in exports.
type ImageBlob struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	TemplateID *uuid.UUID `db:"template_id" json:"templateId,omitempty"`
	Content    []byte     `db:"content" json:"content"`
	MimeType   string     `db:"mime_type" json:"mimeType"`
	SizeBytes  int64      `db:"size_bytes" json:"sizeBytes"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// PaymentEvent records one qualifying event for a (recipient, template) pair.
type PaymentEvent struct {
	ID               string    `db:"id" json:"id"`
	RecipientAddress string    `db:"recipient_address" json:"recipientAddress"`
	TemplateID       uuid.UUID `db:"template_id" json:"templateId"`
	Source           string    `db:"source" json:"source"`
	OccurredAt       time.Time `db:"occurred_at" json:"occurredAt"`
}
