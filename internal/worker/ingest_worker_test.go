package worker

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"sheetcharts/internal/amqp"
	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/services"
	"sheetcharts/internal/storage/memory"
	"sheetcharts/internal/tabular"
)

func setup(t *testing.T) (*IngestWorker, *memory.Store, *blob.FS) {
	t.Helper()
	repo := memory.New()
	blobs, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := log.New(log.Config{Output: io.Discard})
	tables := cache.NewTableCache(8, time.Minute)
	ing := services.NewIngester(repo, blobs, tables, logger)
	config := services.DefaultSweepProcessorConfig()
	config.MinAge = 0
	sweeper := services.NewSweepProcessor(repo, ing, nil, config, logger)
	return NewIngestWorker(ing, sweeper, logger), repo, blobs
}

func store(t *testing.T, repo *memory.Store, blobs *blob.FS, id string, data []byte) {
	t.Helper()
	ctx := context.Background()
	key := "alice/" + id + ".xlsx"
	if _, err := blobs.Put(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	err := repo.CreateFile(ctx, core.UploadedFile{
		ID:           id,
		UserID:       "alice",
		Filename:     key,
		OriginalName: id + ".xlsx",
		FileSize:     int64(len(data)),
		UploadDate:   time.Now().Add(-time.Hour),
		Status:       core.StatusProcessing,
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
}

func workbook(t *testing.T) []byte {
	t.Helper()
	data, err := tabular.EncodeXLSX(&tabular.Table{
		Headers: []string{"Name", "Score"},
		Rows:    [][]tabular.Cell{{"a", 1.0}, {"b", 2.0}},
	})
	if err != nil {
		t.Fatalf("EncodeXLSX: %v", err)
	}
	return data
}

func TestHandleFileUploaded(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantStatus core.FileStatus
	}{
		{"valid workbook", workbook(t), core.StatusCompleted},
		{"corrupt file is settled, not retried", []byte("junk"), core.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, repo, blobs := setup(t)
			store(t, repo, blobs, "f1", tt.data)

			msg := amqp.NewFileUploadedMessage("f1", "alice")
			if err := w.HandleFileUploaded(context.Background(), msg); err != nil {
				t.Fatalf("HandleFileUploaded() = %v", err)
			}

			f, err := repo.GetFile(context.Background(), "", "f1")
			if err != nil {
				t.Fatalf("GetFile: %v", err)
			}
			if f.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", f.Status, tt.wantStatus)
			}
		})
	}
}

func TestHandleFileUploaded_CanceledContextIsRetried(t *testing.T) {
	w, repo, blobs := setup(t)
	store(t, repo, blobs, "f1", workbook(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.HandleFileUploaded(ctx, amqp.NewFileUploadedMessage("f1", "alice")); err == nil {
		t.Error("expected an error so the message is redelivered")
	}
}

func TestProcessPendingFiles(t *testing.T) {
	w, repo, blobs := setup(t)
	store(t, repo, blobs, "f1", workbook(t))
	store(t, repo, blobs, "f2", workbook(t))

	if got := w.ProcessPendingFiles(context.Background()); got != 2 {
		t.Errorf("ProcessPendingFiles() = %d, want 2", got)
	}
	w.StartupCheck(context.Background())

	files, err := repo.ListFiles(context.Background(), "alice", core.StatusCompleted)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("completed files = %d, want 2", len(files))
	}
}
