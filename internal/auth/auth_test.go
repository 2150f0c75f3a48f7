package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
	"sheetcharts/internal/storage/memory"
)

func newTestService(t *testing.T, now *time.Time) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := log.New(log.Config{Component: log.ComponentAuth, Output: &bytes.Buffer{}})
	svc := NewService(store, store, time.Hour, logger,
		WithBcryptCost(bcrypt.MinCost),
		WithClock(func() time.Time { return *now }))
	return svc, store
}

func TestSignUp_FirstUserIsAdmin(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, " Ada@Example.com ", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if first.Role != core.RoleAdmin || first.Email != "ada@example.com" {
		t.Errorf("first user = %+v, want admin with normalized email", first)
	}
	if first.PasswordHash == "correct horse" {
		t.Error("password stored in clear")
	}

	second, err := svc.SignUp(ctx, "bob@example.com", "correct horse", "Bob")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if second.Role != core.RoleUser {
		t.Errorf("second user role = %s, want user", second.Role)
	}

	if _, err := svc.SignUp(ctx, "ADA@example.com", "correct horse", "Ada"); !errors.Is(err, storage.ErrEmailTaken) {
		t.Errorf("duplicate sign up error = %v, want ErrEmailTaken", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(t, &now)

	tests := []struct {
		name                      string
		email, password, fullName string
		want                      error
	}{
		{"bad email", "nope", "correct horse", "Ada", core.ErrInvalidEmail},
		{"short password", "ada@example.com", "short", "Ada", core.ErrWeakPassword},
		{"blank name", "ada@example.com", "correct horse", "  ", core.ErrEmptyFullName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(context.Background(), tt.email, tt.password, tt.fullName); !errors.Is(err, tt.want) {
				t.Errorf("SignUp() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignInAuthenticateSignOut(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "ada@example.com", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, _, err := svc.SignIn(ctx, "ada@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.SignIn(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}

	sess, signedIn, err := svc.SignIn(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(sess.Token) != 64 || signedIn.ID != u.ID {
		t.Errorf("SignIn() = %+v, %+v", sess, signedIn)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, now.Add(time.Hour))
	}

	got, err := svc.Authenticate(ctx, sess.Token)
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate() = %+v, %v", got, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expired token error = %v, want ErrUnauthenticated", err)
	}
	if n, _ := svc.PurgeExpired(ctx); n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}

	now = now.Add(-2 * time.Hour)
	sess, _, _ = svc.SignIn(ctx, "ada@example.com", "correct horse")
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("after sign out error = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty token error = %v, want ErrUnauthenticated", err)
	}
}

type fakeAuthenticator map[string]core.User

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (core.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return core.User{}, ErrUnauthenticated
}

func TestMiddleware(t *testing.T) {
	auth := fakeAuthenticator{"good": {ID: "u1"}}
	handler := Middleware(auth)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		w.Write([]byte(u.ID))
	})))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "good"}) }, http.StatusOK, "u1"},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized, ""},
		{"anonymous", func(r *http.Request) {}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
