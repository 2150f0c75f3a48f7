// Package storagetest holds the behaviour every storage.Repository must share.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/storage"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises newRepo against the shared repository contract.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newRepo(t)) })
	t.Run("files", func(t *testing.T) { testFiles(t, newRepo(t)) })
	t.Run("pending files", func(t *testing.T) { testPendingFiles(t, newRepo(t)) })
	t.Run("analyses", func(t *testing.T) { testAnalyses(t, newRepo(t)) })
}

func mustUser(t *testing.T, repo storage.Repository, id, email string) core.User {
	t.Helper()
	u := core.User{ID: id, Email: email, FullName: "User " + id, Role: core.RoleUser, PasswordHash: "hash", CreatedAt: base}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return u
}

func mustFile(t *testing.T, repo storage.Repository, id, userID string, uploaded time.Time, status core.FileStatus) core.UploadedFile {
	t.Helper()
	f := core.UploadedFile{
		ID:           id,
		UserID:       userID,
		Filename:     userID + "/" + id + ".xlsx",
		OriginalName: id + ".xlsx",
		FileSize:     1024,
		UploadDate:   uploaded,
		Status:       status,
	}
	if err := repo.CreateFile(context.Background(), f); err != nil {
		t.Fatalf("CreateFile(%s): %v", id, err)
	}
	return f
}

func testUsers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	if n, err := repo.CountUsers(ctx); err != nil || n != 0 {
		t.Fatalf("CountUsers() = %d, %v; want 0", n, err)
	}

	u := mustUser(t, repo, "u1", "ada@example.com")

	got, err := repo.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || got.Role != core.RoleUser || got.PasswordHash != "hash" || !got.CreatedAt.Equal(base) {
		t.Errorf("GetUserByEmail() = %+v, want %+v", got, u)
	}

	if _, err := repo.GetUser(ctx, "u1"); err != nil {
		t.Errorf("GetUser: %v", err)
	}
	if _, err := repo.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}

	dup := u
	dup.ID = "u2"
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, storage.ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	if n, _ := repo.CountUsers(ctx); n != 1 {
		t.Errorf("CountUsers() = %d, want 1", n)
	}
}

func testSessions(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "ada@example.com")

	live := core.Session{Token: "live", UserID: "u1", ExpiresAt: base.Add(time.Hour), CreatedAt: base}
	stale := core.Session{Token: "stale", UserID: "u1", ExpiresAt: base.Add(-time.Minute), CreatedAt: base.Add(-time.Hour)}
	for _, s := range []core.Session{live, stale} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s): %v", s.Token, err)
		}
	}

	got, err := repo.GetSession(ctx, "live", base)
	if err != nil || got.UserID != "u1" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("GetSession(live) = %+v, %v", got, err)
	}
	if _, err := repo.GetSession(ctx, "stale", base); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSession(stale) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetSession(ctx, "live", base.Add(2*time.Hour)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSession after expiry error = %v, want ErrNotFound", err)
	}

	if n, err := repo.DeleteExpiredSessions(ctx, base); err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, %v; want 1", n, err)
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, "live", base); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSession after delete error = %v, want ErrNotFound", err)
	}
}

func testFiles(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "ada@example.com")
	mustUser(t, repo, "u2", "bob@example.com")

	mustFile(t, repo, "old", "u1", base, core.StatusCompleted)
	mustFile(t, repo, "new", "u1", base.Add(time.Minute), core.StatusProcessing)
	mustFile(t, repo, "other", "u2", base, core.StatusCompleted)

	files, err := repo.ListFiles(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || files[0].ID != "new" || files[1].ID != "old" {
		t.Fatalf("ListFiles() = %+v, want [new old]", files)
	}

	completed, _ := repo.ListFiles(ctx, "u1", core.StatusCompleted)
	if len(completed) != 1 || completed[0].ID != "old" {
		t.Errorf("ListFiles(completed) = %+v, want [old]", completed)
	}

	if _, err := repo.GetFile(ctx, "u2", "old"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetFile across users error = %v, want ErrNotFound", err)
	}
	if f, err := repo.GetFile(ctx, "", "old"); err != nil || f.UserID != "u1" {
		t.Errorf("unscoped GetFile = %+v, %v", f, err)
	}

	if err := repo.UpdateFileStatus(ctx, "new", core.StatusError, "not a spreadsheet"); err != nil {
		t.Fatalf("UpdateFileStatus: %v", err)
	}
	f, _ := repo.GetFile(ctx, "u1", "new")
	if f.Status != core.StatusError || f.Error != "not a spreadsheet" {
		t.Errorf("after update = %+v", f)
	}
	if err := repo.UpdateFileStatus(ctx, "missing", core.StatusCompleted, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateFileStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func testPendingFiles(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "ada@example.com")

	mustFile(t, repo, "p2", "u1", base.Add(time.Minute), core.StatusProcessing)
	mustFile(t, repo, "p1", "u1", base, core.StatusProcessing)
	mustFile(t, repo, "fresh", "u1", base.Add(time.Hour), core.StatusProcessing)
	mustFile(t, repo, "done", "u1", base, core.StatusCompleted)

	pending, err := repo.ListPendingFiles(ctx, base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("ListPendingFiles: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "p1" || pending[1].ID != "p2" {
		t.Fatalf("ListPendingFiles() = %+v, want [p1 p2]", pending)
	}

	limited, _ := repo.ListPendingFiles(ctx, base.Add(30*time.Minute), 1)
	if len(limited) != 1 {
		t.Errorf("ListPendingFiles(limit 1) returned %d files", len(limited))
	}
}

func testAnalyses(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	mustUser(t, repo, "u1", "ada@example.com")
	mustUser(t, repo, "u2", "bob@example.com")
	mustFile(t, repo, "f1", "u1", base, core.StatusCompleted)

	config := json.RawMessage(`{"options":{},"data":{"labels":["N","S"]}}`)
	first := core.Analysis{ID: "a1", UserID: "u1", FileID: "f1", ChartKind: chart.Bar, XColumn: "Region", YColumn: "Sales", Title: "First", ChartConfig: config, CreatedAt: base}
	second := core.Analysis{ID: "a2", UserID: "u1", FileID: "f1", ChartKind: chart.Pie, XColumn: "Region", YColumn: "Sales", Title: "Second", ChartConfig: config, CreatedAt: base.Add(time.Second)}
	for _, a := range []core.Analysis{first, second} {
		if err := repo.CreateAnalysis(ctx, a); err != nil {
			t.Fatalf("CreateAnalysis(%s): %v", a.ID, err)
		}
	}

	list, err := repo.ListAnalyses(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a2" || list[1].ID != "a1" {
		t.Fatalf("ListAnalyses() = %+v, want [a2 a1]", list)
	}
	if list[0].FileName != "f1.xlsx" {
		t.Errorf("FileName = %q, want f1.xlsx", list[0].FileName)
	}

	got, err := repo.GetAnalysis(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.ChartKind != chart.Bar || string(got.ChartConfig) != string(config) {
		t.Errorf("GetAnalysis() = %+v", got)
	}
	if _, err := repo.GetAnalysis(ctx, "u2", "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetAnalysis across users error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteAnalysis(ctx, "u2", "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteAnalysis across users error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteAnalysis(ctx, "u1", "a1"); err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if list, _ := repo.ListAnalyses(ctx, "u1"); len(list) != 1 {
		t.Errorf("after delete ListAnalyses() returned %d", len(list))
	}
}
