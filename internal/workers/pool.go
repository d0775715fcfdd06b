package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sbt-engine/internal/observability"

	"github.com/google/uuid"
)

// MintJob asks the pool to run the minting pipeline for one token row.
type MintJob struct {
	TokenID uuid.UUID
}

// MintRunner executes one mint attempt; implemented by the pipeline.
type MintRunner interface {
	Run(ctx context.Context, tokenID uuid.UUID) error
}

// PoolConfig holds configuration for the mint worker pool.
type PoolConfig struct {
	// NumWorkers is the number of concurrent workers to run.
	NumWorkers int

	// QueueSize is the size of the job queue buffer. If the queue is full,
	// Submit() fails instead of blocking the caller.
	QueueSize int

	// DrainTimeout is the maximum time to wait for in-flight jobs to
	// complete during graceful shutdown.
	DrainTimeout time.Duration
}

// DefaultPoolConfig returns sensible defaults for the mint pool.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:   4,
		QueueSize:    64,
		DrainTimeout: 30 * time.Second,
	}
}

// Pool fans mint jobs out to a fixed set of workers. Jobs for different
// token rows may run concurrently; steps within one attempt stay sequential
// inside the pipeline.
type Pool struct {
	config PoolConfig
	runner MintRunner
	logger *observability.Logger

	jobChan chan MintJob
	wg      sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancelFn context.CancelFunc
}

// NewPool creates a worker pool for mint processing.
func NewPool(config PoolConfig, runner MintRunner, logger *observability.Logger) *Pool {
	def := DefaultPoolConfig()
	if config.NumWorkers <= 0 {
		config.NumWorkers = def.NumWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = def.DrainTimeout
	}

	return &Pool{
		config:  config,
		runner:  runner,
		logger:  logger,
		jobChan: make(chan MintJob, config.QueueSize),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("mint pool already started")
	}
	if p.stopped {
		return fmt.Errorf("mint pool already stopped")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel
	p.started = true

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(workerCtx, i)
	}

	p.logger.Info(ctx, fmt.Sprintf("Started %d mint workers", p.config.NumWorkers))
	return nil
}

// Submit enqueues a mint job. It never blocks; a full queue is surfaced as
// an error so the caller's token row stays pending for a later manual retry.
func (p *Pool) Submit(job MintJob) error {
	// The send stays under the lock so it cannot race the close in Stop.
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return fmt.Errorf("mint pool is not running")
	}

	select {
	case p.jobChan <- job:
		return nil
	default:
		return fmt.Errorf("mint queue is full")
	}
}

// Stop drains in-flight jobs and shuts the pool down.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info(ctx, "mint pool drained")
	case <-time.After(p.config.DrainTimeout):
		p.logger.Warn(ctx, "mint pool drain timed out, cancelling workers")
		p.cancelFn()
		<-done
	}
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobChan {
		jobCtx := observability.WithFields(ctx,
			observability.Field{Key: "worker_id", Value: id},
			observability.Field{Key: "token_row_id", Value: job.TokenID.String()},
		)
		if err := p.runner.Run(jobCtx, job.TokenID); err != nil {
			p.logger.Error(jobCtx, "mint attempt could not be executed", err)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
