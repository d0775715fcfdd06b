// Package pipeline drives one mint attempt through its stages:
//
//	Created -> MetadataPublishing -> MetadataPublished -> GasEstimating ->
//	Submitting -> Confirming -> {Confirmed | Failed}
//
// The token row already exists with mint status pending before Run is called;
// whatever happens on the network, the row ends with an accurate terminal
// mint status and is never deleted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"sbt-engine/internal/clients/cas"
	"sbt-engine/internal/clients/chain"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"

	"github.com/google/uuid"
)

// Stage names, logged as the attempt advances.
const (
	StageCreated            = "created"
	StageMetadataPublishing = "metadata_publishing"
	StageMetadataPublished  = "metadata_published"
	StageGasEstimating      = "gas_estimating"
	StageSubmitting         = "submitting"
	StageConfirming         = "confirming"
	StageConfirmed          = "confirmed"
	StageFailed             = "failed"
)

// Config bounds the pipeline's network behavior.
type Config struct {
	// RetryDelay is the pause before the single bounded retry.
	RetryDelay time.Duration
	// ReceiptTimeout bounds each wait for a transaction receipt.
	ReceiptTimeout time.Duration
	// DefaultGasLimit is used when gas estimation fails.
	DefaultGasLimit uint64
}

// DefaultConfig returns the production pipeline bounds.
func DefaultConfig() Config {
	return Config{
		RetryDelay:      5 * time.Second,
		ReceiptTimeout:  90 * time.Second,
		DefaultGasLimit: 300_000,
	}
}

// defaultGasPrices maps chain ids to a fallback gas price used when the
// network price query fails.
var defaultGasPrices = map[int64]*big.Int{
	1:        big.NewInt(30_000_000_000), // mainnet: 30 gwei
	137:      big.NewInt(80_000_000_000), // polygon: 80 gwei
	11155111: big.NewInt(10_000_000_000), // sepolia: 10 gwei
}

var fallbackGasPrice = big.NewInt(20_000_000_000)

// Pipeline executes mint attempts. Steps within one attempt are strictly
// sequential; attempts for different tokens may run concurrently on the
// worker pool.
type Pipeline struct {
	store    TokenStore
	chain    Chain
	metadata MetadataStore
	logger   *observability.Logger
	cfg      Config
}

func New(tokenStore TokenStore, chainClient Chain, metadata MetadataStore, logger *observability.Logger, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = def.ReceiptTimeout
	}
	if cfg.DefaultGasLimit == 0 {
		cfg.DefaultGasLimit = def.DefaultGasLimit
	}
	return &Pipeline{
		store:    tokenStore,
		chain:    chainClient,
		metadata: metadata,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run executes one mint attempt for the given token row. A classified mint
// failure is a recorded outcome, not an error: Run returns an error only when
// the attempt could not be executed or its outcome could not be persisted.
func (p *Pipeline) Run(ctx context.Context, tokenID uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "token_row_id", Value: tokenID.String()})

	token, err := p.store.GetIssuedToken(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to load token row: %w", err)
	}
	if token.MintStatus != store.MintStatusPending {
		p.logger.Info(ctx, "mint already in terminal state, skipping")
		return nil
	}
	p.logStage(ctx, StageCreated)

	tpl, err := p.store.GetTemplate(ctx, token.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	tokenURI := p.publishMetadata(ctx, &token, tpl)

	call := chain.MintCall{
		RecipientAddress: token.RecipientAddress,
		ShopID:           tpl.ShopID,
		TokenURI:         tokenURI,
	}

	p.logStage(ctx, StageGasEstimating)
	gasPrice := p.gasPrice(ctx)
	gasEstimate, err := p.chain.EstimateMint(ctx, call)
	if err != nil {
		p.logger.WarnWithError(ctx, "gas estimation failed, using default limit", err)
		gasEstimate = p.cfg.DefaultGasLimit
	}

	p.logStage(ctx, StageSubmitting)
	if err := p.chain.SimulateMint(ctx, call); err != nil {
		// A revert surfaced before any gas was spent; txHash stays unset.
		return p.fail(ctx, token, err)
	}

	// 1.25 safety margin over the estimate.
	gasLimit := gasEstimate + gasEstimate/4
	receipt, err := p.submitAndConfirm(ctx, call, gasEstimate, gasLimit, gasPrice)
	if err != nil {
		return p.fail(ctx, token, err)
	}

	if receipt.Reverted {
		token.TxHash = &receipt.TxHash
		return p.fail(ctx, token, errors.New("transaction reverted on chain"))
	}

	token.MintStatus = store.MintStatusSuccess
	token.TxHash = &receipt.TxHash
	token.TokenID = receipt.TokenID
	chainID := p.chain.ChainID()
	token.ChainID = &chainID
	if _, err := p.store.UpsertIssuedToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist confirmed mint: %w", err)
	}

	p.logStage(ctx, StageConfirmed)
	return nil
}

// publishMetadata uploads the reward image and a composed metadata document.
// On any upload failure it substitutes a locally synthesized placeholder so
// the on-chain call can still proceed, and flags the row for later repair.
func (p *Pipeline) publishMetadata(ctx context.Context, token *store.IssuedToken, tpl store.Template) string {
	p.logStage(ctx, StageMetadataPublishing)

	uri, err := p.composeAndUpload(ctx, token, tpl)
	if err != nil {
		p.logger.WarnWithError(ctx, "metadata publication failed, using placeholder", err)
		token.NeedsMetadataRepair = true
		uri = fmt.Sprintf("local://pending-metadata/%s", token.ID)
	}

	if updated, uerr := p.store.UpsertIssuedToken(ctx, *token); uerr == nil {
		*token = updated
	} else {
		p.logger.WarnWithError(ctx, "failed to persist metadata stage", uerr)
	}

	if err == nil {
		p.logStage(ctx, StageMetadataPublished)
	}
	return uri
}

func (p *Pipeline) composeAndUpload(ctx context.Context, token *store.IssuedToken, tpl store.Template) (string, error) {
	imageURI := ""
	if tpl.ImageID != nil {
		img, err := p.store.GetImage(ctx, *tpl.ImageID)
		if err != nil {
			return "", fmt.Errorf("failed to load reward image: %w", err)
		}
		cid, err := p.metadata.UploadFile(ctx, img.Content, cas.FileMeta{
			Name:     fmt.Sprintf("%s-image", tpl.ShopID),
			MimeType: img.MimeType,
		})
		if err != nil {
			return "", err
		}
		imageURI = "ipfs://" + cid
	}

	doc := map[string]interface{}{
		"name":        tpl.Name,
		"description": tpl.RewardDescription,
		"image":       imageURI,
		"attributes": []map[string]interface{}{
			{"trait_type": "shop_id", "value": tpl.ShopID},
			{"trait_type": "pattern", "value": string(tpl.IssuePattern)},
			{"trait_type": "stamps", "value": token.CurrentStamps},
		},
	}
	cid, err := p.metadata.UploadJSON(ctx, doc, cas.FileMeta{
		Name: fmt.Sprintf("%s-metadata", token.ID),
	})
	if err != nil {
		return "", err
	}
	return "ipfs://" + cid, nil
}

// gasPrice queries the network price, substituting a per-chain default on
// failure rather than blocking the attempt.
func (p *Pipeline) gasPrice(ctx context.Context) *big.Int {
	price, err := p.chain.SuggestGasPrice(ctx)
	if err == nil {
		return price
	}
	p.logger.WarnWithError(ctx, "gas price query failed, using network default", err)
	if def, ok := defaultGasPrices[p.chain.ChainID()]; ok {
		return def
	}
	return fallbackGasPrice
}

// submitAndConfirm sends the transaction and waits for its receipt. On an
// RPC/network failure it makes exactly one delayed retry with a reduced gas
// limit; there is no unbounded retry loop.
func (p *Pipeline) submitAndConfirm(ctx context.Context, call chain.MintCall, gasEstimate, gasLimit uint64, gasPrice *big.Int) (chain.MintReceipt, error) {
	attempt := func(limit uint64) (chain.MintReceipt, error) {
		txHash, err := p.chain.SubmitMint(ctx, call, limit, gasPrice)
		if err != nil {
			return chain.MintReceipt{}, err
		}
		p.logStage(ctx, StageConfirming)
		waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ReceiptTimeout)
		defer cancel()
		return p.chain.WaitMined(waitCtx, txHash)
	}

	receipt, err := attempt(gasLimit)
	if err == nil {
		return receipt, nil
	}
	if reason := Classify(err); reason != ReasonNetworkUnreachable && reason != ReasonUnknown {
		return chain.MintReceipt{}, err
	}

	p.logger.WarnWithError(ctx, "mint submission failed, retrying once with reduced gas", err)
	select {
	case <-ctx.Done():
		return chain.MintReceipt{}, err
	case <-time.After(p.cfg.RetryDelay):
	}

	// 1.1 margin on the retry.
	reducedLimit := gasEstimate + gasEstimate/10
	return attempt(reducedLimit)
}

// fail records the terminal failure; the row stays present and listable with
// the classified reason, enabling manual retry later.
func (p *Pipeline) fail(ctx context.Context, token store.IssuedToken, cause error) error {
	reason := Classify(cause)
	message := cause.Error()
	token.MintStatus = store.MintStatusFailed
	token.FailReason = &reason
	token.MintError = &message

	ctx = observability.WithFields(ctx, observability.Field{Key: "fail_reason", Value: reason})
	p.logger.WarnWithError(ctx, "mint attempt failed", cause)
	p.logStage(ctx, StageFailed)

	if _, err := p.store.UpsertIssuedToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist mint failure: %w", err)
	}
	return nil
}

func (p *Pipeline) logStage(ctx context.Context, stage string) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "stage", Value: stage})
	p.logger.Info(ctx, "mint pipeline stage")
}
