package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sheetcharts/internal/core"
	"sheetcharts/internal/storage"
)

// Store keeps every record in process memory. It backs DATA_BACKEND=memory
// and the service and HTTP tests.
type Store struct {
	mu       sync.Mutex
	users    []core.User
	sessions map[string]core.Session
	files    []core.UploadedFile
	analyses []core.Analysis
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{sessions: make(map[string]core.Session)}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrEmailTaken
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, token string, now time.Time) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || sess.Expired(now) {
		return core.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateFile(_ context.Context, f core.UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
	return nil
}

func (s *Store) GetFile(_ context.Context, userID, id string) (core.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.ID == id && (userID == "" || f.UserID == userID) {
			return f, nil
		}
	}
	return core.UploadedFile{}, storage.ErrNotFound
}

func (s *Store) ListFiles(_ context.Context, userID string, status core.FileStatus) ([]core.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.UploadedFile
	for i := len(s.files) - 1; i >= 0; i-- {
		f := s.files[i]
		if f.UserID != userID || (status != "" && f.Status != status) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (s *Store) UpdateFileStatus(_ context.Context, id string, status core.FileStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].ID == id {
			s.files[i].Status = status
			s.files[i].Error = reason
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) ListPendingFiles(_ context.Context, olderThan time.Time, limit int) ([]core.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.UploadedFile
	for _, f := range s.files {
		if f.Status == core.StatusProcessing && f.UploadDate.Before(olderThan) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadDate.Before(out[j].UploadDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateAnalysis(_ context.Context, a core.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.FileName = ""
	s.analyses = append(s.analyses, a)
	return nil
}

func (s *Store) GetAnalysis(_ context.Context, userID, id string) (core.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.analyses {
		if a.ID == id && a.UserID == userID {
			return s.withFileName(a), nil
		}
	}
	return core.Analysis{}, storage.ErrNotFound
}

func (s *Store) ListAnalyses(_ context.Context, userID string) ([]core.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Analysis
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if a := s.analyses[i]; a.UserID == userID {
			out = append(out, s.withFileName(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteAnalysis(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.analyses {
		if a.ID == id && a.UserID == userID {
			s.analyses = append(s.analyses[:i], s.analyses[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// withFileName must be called with s.mu held.
func (s *Store) withFileName(a core.Analysis) core.Analysis {
	for _, f := range s.files {
		if f.ID == a.FileID {
			a.FileName = f.OriginalName
			break
		}
	}
	return a
}
