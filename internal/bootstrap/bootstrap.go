package bootstrap

import (
	"context"
	"fmt"

	"sbt-engine/internal/clients/cas"
	"sbt-engine/internal/clients/chain"
	"sbt-engine/internal/config"
	"sbt-engine/internal/minting/pipeline"
	"sbt-engine/internal/observability"
	"sbt-engine/internal/store"
	"sbt-engine/internal/workers"

	authHandler "sbt-engine/internal/auth/handler"
	authProcessor "sbt-engine/internal/auth/processor"
	issuanceHandler "sbt-engine/internal/issuance/handler"
	issuanceProcessor "sbt-engine/internal/issuance/processor"
	networkHandler "sbt-engine/internal/network/handler"
	paymentsHandler "sbt-engine/internal/payments/handler"
	paymentsProcessor "sbt-engine/internal/payments/processor"
	templatesHandler "sbt-engine/internal/templates/handler"
	templatesProcessor "sbt-engine/internal/templates/processor"
	transferHandler "sbt-engine/internal/transfer/handler"
	transferProcessor "sbt-engine/internal/transfer/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  *store.Store
	Logger *observability.Logger

	// Handlers
	AuthHandler      authHandler.Handler
	TemplatesHandler templatesHandler.Handler
	IssuanceHandler  issuanceHandler.Handler
	PaymentsHandler  paymentsHandler.Handler
	TransferHandler  transferHandler.Handler
	NetworkHandler   networkHandler.Handler

	// Background workers
	MintPool *workers.Pool
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.Store, err = store.New(cfg.Ledger.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	chainClient, err := chain.New(
		cfg.Chain.RPCURL,
		cfg.Chain.MinterKeyHex,
		cfg.Chain.ContractAddress,
		cfg.Chain.ChainID,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain client: %w", err)
	}

	casClient := cas.New(cfg.Pinning.BaseURL, cfg.Pinning.APIKey, logger)

	mintPipeline := pipeline.New(deps.Store, chainClient, casClient, logger, pipeline.DefaultConfig())
	deps.MintPool = workers.NewPool(workers.PoolConfig{
		NumWorkers: cfg.WorkerPool.MintWorkers,
		QueueSize:  cfg.WorkerPool.QueueSize,
	}, mintPipeline, logger)

	issuanceProc := issuanceProcessor.New(deps.Store, deps.MintPool, logger)
	deps.IssuanceHandler = issuanceHandler.New(issuanceProc, logger)

	templatesProc := templatesProcessor.New(deps.Store, logger)
	deps.TemplatesHandler = templatesHandler.New(templatesProc, logger)

	paymentsProc := paymentsProcessor.New(&issuanceProc, cfg.Payments.StripeWebhookSecret, logger)
	deps.PaymentsHandler = paymentsHandler.New(paymentsProc, logger)

	transferProc := transferProcessor.New(deps.Store, transferProcessor.NetworkInfo{
		ChainID:         cfg.Chain.ChainID,
		ContractAddress: cfg.Chain.ContractAddress,
	}, logger)
	deps.TransferHandler = transferHandler.New(transferProc, logger)

	deps.NetworkHandler = networkHandler.New(chainClient, cfg.Chain.ContractAddress, logger)

	authProc := authProcessor.New(cfg.Auth.JWTSecret, cfg.Auth.DashboardPassword, logger)
	deps.AuthHandler = authHandler.New(authProc, logger)

	return deps, nil
}

// Close releases everything Initialize opened.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
