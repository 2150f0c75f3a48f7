package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"sheetcharts/internal/auth"
	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/middleware/ratelimit"
	"sheetcharts/internal/middleware/security"
	"sheetcharts/internal/middleware/trace"
	"sheetcharts/internal/services"
	"sheetcharts/internal/tabular"
)

// Accounts is the account surface the API needs; *auth.Service implements it.
type Accounts interface {
	auth.Authenticator
	SignUp(ctx context.Context, email, password, fullName string) (core.User, error)
	SignIn(ctx context.Context, email, password string) (core.Session, core.User, error)
	SignOut(ctx context.Context, token string) error
}

// Analyses is the file and chart surface; *services.AnalysisService implements it.
type Analyses interface {
	Upload(ctx context.Context, user core.User, name string, size int64, r io.Reader) (core.UploadedFile, error)
	Table(ctx context.Context, user core.User, fileID string) (*tabular.Table, core.UploadedFile, error)
	Project(ctx context.Context, user core.User, fileID, x, y string, kind chart.Kind) (services.Projection, error)
	SaveAnalysis(ctx context.Context, user core.User, req services.SaveRequest) (core.Analysis, error)
	ListFiles(ctx context.Context, user core.User, status core.FileStatus) ([]core.UploadedFile, error)
	ListAnalyses(ctx context.Context, user core.User) ([]core.Analysis, error)
	DeleteAnalysis(ctx context.Context, user core.User, id string) error
	History(ctx context.Context, user core.User) (core.History, error)
	Dashboard(ctx context.Context, user core.User) (core.DashboardStats, error)
	ExportPNG(ctx context.Context, user core.User, analysisID string) ([]byte, core.Analysis, error)
	ExportPDF(ctx context.Context, user core.User, analysisID string) ([]byte, core.Analysis, error)
	ImportGoogleSheet(ctx context.Context, user core.User, ref string) (core.UploadedFile, error)
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds the server's tunables.
type Config struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	SecureCookies      bool
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Accounts Accounts
	Analyses Analyses
	Ready    []ReadinessCheck
	Logger   *log.Logger
}

// Server is the JSON API server.
type Server struct {
	http.Server

	cfg      Config
	accounts Accounts
	analyses Analyses
	ready    []ReadinessCheck
	logger   *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		cfg:      cfg,
		accounts: deps.Accounts,
		analyses: deps.Analyses,
		ready:    deps.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(limitCfg),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w, r)
	})

	var h http.Handler = mux
	h = auth.Middleware(s.accounts)(h)
	h = limit(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)

	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth.Require(h))
	}
	private("GET /api/me", s.handleMe)

	private("POST /api/files", s.handleUpload)
	private("GET /api/files", s.handleListFiles)
	private("GET /api/files/{id}/table", s.handleTable)
	private("POST /api/files/{id}/projection", s.handleProjection)
	private("POST /api/files/import/google-sheet", s.handleImportSheet)

	private("POST /api/analyses", s.handleSaveAnalysis)
	private("GET /api/analyses", s.handleListAnalyses)
	private("DELETE /api/analyses/{id}", s.handleDeleteAnalysis)
	private("GET /api/analyses/{id}/export.png", s.handleExportPNG)
	private("GET /api/analyses/{id}/export.pdf", s.handleExportPDF)

	private("GET /api/dashboard", s.handleDashboard)
	private("GET /api/history", s.handleHistory)

	private("GET /api/admin/metrics", s.handleMetrics)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns a snapshot of the middleware counters.
func (s *Server) Metrics() map[string]any {
	return map[string]any{
		"requests":   s.tracer.GetMetrics(),
		"rate_limit": s.limiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	}
}

// handleMetrics is restricted to admins.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).IsAdmin() {
		ErrorResponse(http.StatusForbidden, "admin role required").Write(w, r)
		return
	}
	NewJSONResponse().Body(s.Metrics()).Write(w, r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.ready))
	status := http.StatusOK
	for _, c := range s.ready {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
				"check", c.Name, log.FieldError, err.Error())
			continue
		}
		checks[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	NewJSONResponse().Status(status).Body(map[string]any{
		"status": state,
		"checks": checks,
	}).Write(w, r)
}

// currentUser returns the user attached by auth.Middleware. Routes that call
// it are wrapped in auth.Require.
func currentUser(r *http.Request) core.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}
