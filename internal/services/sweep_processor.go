package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
)

// SweepProcessorConfig holds configuration for the sweep processor
type SweepProcessorConfig struct {
	// PollInterval is how often to look for stuck files (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of files to ingest per cycle (default: 10)
	BatchSize int

	// MinAge is how long a file must have been processing before the sweep
	// picks it up, leaving time for the queued message (default: PollInterval)
	MinAge time.Duration

	// CleanupInterval is how often expired sessions are purged (default: 1h)
	CleanupInterval time.Duration
}

// DefaultSweepProcessorConfig returns sensible defaults
func DefaultSweepProcessorConfig() SweepProcessorConfig {
	return SweepProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MinAge:          30 * time.Second,
		CleanupInterval: 1 * time.Hour,
	}
}

// SessionPurger drops expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SweepProcessor re-ingests files left in processing, for example after a lost
// queue message, and purges expired sessions.
type SweepProcessor struct {
	files    storage.FileStore
	ingester *Ingester
	sessions SessionPurger
	config   SweepProcessorConfig
	now      func() time.Time
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweepProcessor creates a new sweep processor. sessions may be nil.
func NewSweepProcessor(files storage.FileStore, ingester *Ingester, sessions SessionPurger, config SweepProcessorConfig, logger *log.Logger) *SweepProcessor {
	return &SweepProcessor{
		files:    files,
		ingester: ingester,
		sessions: sessions,
		config:   config,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SweepProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sweep processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sweep processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SweepProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sweep processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sweep processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SweepProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SweepProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupSessions(ctx)
		}
	}
}

// ProcessBatch ingests one batch of stuck files and returns how many settled.
func (p *SweepProcessor) ProcessBatch(ctx context.Context) int {
	cutoff := p.now().Add(-p.config.MinAge)
	files, err := p.files.ListPendingFiles(ctx, cutoff, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list pending files", log.FieldError, err)
		return 0
	}
	if len(files) == 0 {
		return 0
	}

	p.logger.InfoContext(ctx, "Sweeping pending files", "count", len(files), log.FieldOperation, log.OpSweep)

	settled := 0
	for _, f := range files {
		select {
		case <-p.stopCh:
			return settled
		case <-ctx.Done():
			return settled
		default:
		}

		if err := p.ingester.Ingest(ctx, f.ID); err != nil {
			p.logger.WarnContext(ctx, "Sweep ingestion failed, will retry",
				log.FieldFileID, f.ID,
				log.FieldError, err)
			continue
		}
		settled++
	}
	return settled
}

func (p *SweepProcessor) cleanupSessions(ctx context.Context) {
	if p.sessions == nil {
		return
	}
	if _, err := p.sessions.PurgeExpired(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Failed to purge expired sessions", log.FieldError, err)
	}
}
