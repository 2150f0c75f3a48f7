package services

import (
	"context"
	"errors"
	"fmt"

	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
	"sheetcharts/internal/tabular"
)

// Ingester turns a stored upload into a parsed table and settles the file's status.
type Ingester struct {
	files  storage.FileStore
	blobs  blob.Store
	tables *cache.TableCache
	logger *log.Logger
}

func NewIngester(files storage.FileStore, blobs blob.Store, tables *cache.TableCache, logger *log.Logger) *Ingester {
	return &Ingester{
		files:  files,
		blobs:  blobs,
		tables: tables,
		logger: logger.WithComponent(log.ComponentIngest),
	}
}

// Ingest parses the blob of a processing file. Files that cannot be decoded are
// marked as failed and nil is returned; the returned error is only set for
// failures worth retrying.
func (i *Ingester) Ingest(ctx context.Context, fileID string) error {
	f, err := i.files.GetFile(ctx, "", fileID)
	if errors.Is(err, storage.ErrNotFound) {
		i.logger.WarnContext(ctx, "Ingest skipped: file no longer exists", log.FieldFileID, fileID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get file %s: %w", fileID, err)
	}
	if f.Status != core.StatusProcessing {
		i.logger.DebugContext(ctx, "Ingest skipped: file already settled",
			log.FieldFileID, f.ID,
			log.FieldFileStatus, f.Status)
		return nil
	}

	table, err := loadTable(ctx, i.blobs, f)
	if err != nil {
		if !isPermanent(err) {
			return err
		}
		i.logger.WarnContext(ctx, "File rejected during ingestion",
			log.FieldFileID, f.ID,
			log.FieldFileName, f.OriginalName,
			log.FieldError, err)
		if uerr := i.files.UpdateFileStatus(ctx, f.ID, core.StatusError, err.Error()); uerr != nil {
			return fmt.Errorf("mark file %s failed: %w", f.ID, uerr)
		}
		return nil
	}

	if err := i.files.UpdateFileStatus(ctx, f.ID, core.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark file %s completed: %w", f.ID, err)
	}
	if i.tables != nil {
		i.tables.Set(f.ID, table)
	}

	log.NewStructuredLogger(i.logger).LogFileIngested(ctx, f.UserID, f.ID, f.OriginalName, len(table.Headers), len(table.Rows))
	return nil
}

// loadTable opens the file's blob and parses it.
func loadTable(ctx context.Context, blobs blob.Store, f core.UploadedFile) (*tabular.Table, error) {
	rc, err := blobs.Open(ctx, f.Filename)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", f.Filename, err)
	}
	defer rc.Close()

	table, err := tabular.Parse(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.OriginalName, err)
	}
	return table, nil
}

// isPermanent reports whether retrying the ingestion of the same bytes cannot succeed.
func isPermanent(err error) bool {
	return errors.Is(err, tabular.ErrDecode) ||
		errors.Is(err, tabular.ErrEmptyInput) ||
		errors.Is(err, blob.ErrNotFound) ||
		errors.Is(err, blob.ErrInvalidKey)
}
