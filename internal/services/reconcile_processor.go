package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankledger/internal/cache"
	"bankledger/internal/log"
)

// ReconcileProcessorConfig holds configuration for the reconcile processor
type ReconcileProcessorConfig struct {
	// ReconcileInterval is how often every budget is recomputed from the ledger (default: 5m)
	ReconcileInterval time.Duration

	// CleanupInterval is how often expired idempotency records are purged (default: 1h)
	CleanupInterval time.Duration

	// IdempotencyTTL is the retention window for idempotency records (default: 24h)
	IdempotencyTTL time.Duration
}

func DefaultReconcileProcessorConfig() ReconcileProcessorConfig {
	return ReconcileProcessorConfig{
		ReconcileInterval: 5 * time.Minute,
		CleanupInterval:   time.Hour,
		IdempotencyTTL:    24 * time.Hour,
	}
}

// ReconcileProcessor runs the periodic maintenance of the ledger: a full
// budget reconciliation pass and purging of expired idempotency records.
type ReconcileProcessor struct {
	tracker *BudgetTracker
	purger  IdempotencyPurger
	janitor *cache.Janitor
	config  ReconcileProcessorConfig
	now     func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconcileProcessor creates a processor. purger and janitor may be nil.
func NewReconcileProcessor(tracker *BudgetTracker, purger IdempotencyPurger, janitor *cache.Janitor, config ReconcileProcessorConfig) *ReconcileProcessor {
	return &ReconcileProcessor{
		tracker: tracker,
		purger:  purger,
		janitor: janitor,
		config:  config,
		now:     time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReconcileProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reconcile processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	log.FromContext(ctx).WithComponent(log.ComponentReconcile).InfoContext(ctx, "Reconcile processor started",
		"reconcile_interval", p.config.ReconcileInterval,
		"cleanup_interval", p.config.CleanupInterval)

	return nil
}

// Stop gracefully stops the processor and waits for the current pass.
func (p *ReconcileProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	logger := log.FromContext(ctx).WithComponent(log.ComponentReconcile)
	select {
	case <-doneCh:
		logger.InfoContext(ctx, "Reconcile processor stopped gracefully")
	case <-ctx.Done():
		logger.WarnContext(ctx, "Reconcile processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *ReconcileProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReconcileProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	reconcileTicker := time.NewTicker(p.config.ReconcileInterval)
	defer reconcileTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Repair any drift left by a previous run before waiting for the first tick
	p.ReconcileOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-reconcileTicker.C:
			p.ReconcileOnce(ctx)
		case <-cleanupTicker.C:
			p.CleanupOnce(ctx)
		}
	}
}

// ReconcileOnce runs one full reconciliation pass and logs its outcome.
func (p *ReconcileProcessor) ReconcileOnce(ctx context.Context) int {
	logger := log.FromContext(ctx).WithComponent(log.ComponentReconcile)
	start := time.Now()
	n, err := p.tracker.ReconcileAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Budget reconciliation pass failed",
			"reconciled", n, log.FieldError, err)
		return n
	}
	logger.DebugContext(ctx, "Budget reconciliation pass complete",
		"reconciled", n,
		log.FieldDuration, time.Since(start).Milliseconds())
	return n
}

// CleanupOnce purges expired idempotency records and stale cache entries.
func (p *ReconcileProcessor) CleanupOnce(ctx context.Context) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentReconcile)
	if p.purger != nil {
		cutoff := p.now().Add(-p.config.IdempotencyTTL)
		n, err := p.purger.PurgeExpired(ctx, cutoff)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to purge idempotency records", log.FieldError, err)
		} else if n > 0 {
			logger.InfoContext(ctx, "Purged expired idempotency records", "count", n)
		}
	}
	if p.janitor != nil {
		p.janitor.Sweep(ctx)
	}
}
