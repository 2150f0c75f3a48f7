package worker

import (
	"context"
	"fmt"

	"sheetcharts/internal/amqp"
	"sheetcharts/internal/log"
	"sheetcharts/internal/services"
)

// IngestWorker consumes upload notifications and parses the uploaded files.
type IngestWorker struct {
	ingester *services.Ingester
	sweeper  *services.SweepProcessor
	logger   *log.Logger
}

func NewIngestWorker(ingester *services.Ingester, sweeper *services.SweepProcessor, logger *log.Logger) *IngestWorker {
	return &IngestWorker{
		ingester: ingester,
		sweeper:  sweeper,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleFileUploaded processes a single upload message from AMQP. A returned
// error asks the broker to redeliver; undecodable files are settled as failed
// and acknowledged.
func (w *IngestWorker) HandleFileUploaded(ctx context.Context, msg *amqp.FileUploadedMessage) error {
	w.logger.InfoContext(ctx, "Processing upload message",
		log.FieldFileID, msg.FileID,
		log.FieldUserID, msg.UserID,
		"timestamp", msg.Timestamp)

	if err := w.ingester.Ingest(ctx, msg.FileID); err != nil {
		return fmt.Errorf("ingest file %s: %w", msg.FileID, err)
	}
	return nil
}

// ProcessPendingFiles ingests files still marked processing.
// This is a backup mechanism in case AMQP messages are lost.
func (w *IngestWorker) ProcessPendingFiles(ctx context.Context) int {
	return w.sweeper.ProcessBatch(ctx)
}

// StartupCheck settles files left behind by a previous run before consuming.
func (w *IngestWorker) StartupCheck(ctx context.Context) {
	n := w.ProcessPendingFiles(ctx)
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending files found on startup")
		return
	}
	w.logger.InfoContext(ctx, "Startup sweep completed", "settled", n)
}
