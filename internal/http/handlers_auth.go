package http

import (
	"net/http"
	"time"

	"sheetcharts/internal/auth"
	"sheetcharts/internal/log"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "signup", err)
		return
	}

	u, err := s.accounts.SignUp(r.Context(), sanitizeInput(req.Email), req.Password, sanitizeInput(req.FullName))
	if err != nil {
		writeError(w, r, "signup", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toUser(u)).Write(w, r)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "signin", err)
		return
	}

	sess, u, err := s.accounts.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, "signin", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	NewJSONResponse().Body(sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      toUser(u),
	}).Write(w, r)
}

// handleSignOut is idempotent: a missing or unknown token still clears the cookie.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := s.accounts.SignOut(r.Context(), token); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Sign out failed", log.FieldError, err.Error())
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toUser(currentUser(r))).Write(w, r)
}
