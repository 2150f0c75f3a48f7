package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	at := time.UnixMilli(1709294400123)
	if got := Key("u1", "f1", at, ".xlsx"); got != "u1/1709294400123-f1.xlsx" {
		t.Errorf("Key() = %q", got)
	}
	if Key("u1", "f1", at, ".xlsx") == Key("u1", "f2", at, ".xlsx") {
		t.Error("uploads in the same millisecond share a key")
	}
}

func TestFS_PutNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	if _, err := s.Put(ctx, "u1/1.xlsx", strings.NewReader("file A")); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := s.Put(ctx, "u1/1.xlsx", strings.NewReader("file B")); !errors.Is(err, ErrExists) {
		t.Fatalf("second Put error = %v, want ErrExists", err)
	}

	rc, err := s.Open(ctx, "u1/1.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "file A" {
		t.Errorf("read %q, want the first upload", data)
	}
}

func TestFS_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	n, err := s.Put(ctx, "u1/1.xlsx", strings.NewReader("workbook"))
	if err != nil || n != 8 {
		t.Fatalf("Put() = %d, %v", n, err)
	}

	rc, err := s.Open(ctx, "u1/1.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "workbook" {
		t.Errorf("read %q, want workbook", data)
	}

	if err := s.Delete(ctx, "u1/1.xlsx"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Open(ctx, "u1/1.xlsx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "u1/1.xlsx"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "u1/../../x", "u1//x", `u1\x`, "."} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestFS_CanceledContext(t *testing.T) {
	s, _ := NewFS(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "u1/1.xlsx", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put error = %v, want context.Canceled", err)
	}
}
