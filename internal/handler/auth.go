package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler runs the delegated sign-in flow and the session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to the identity provider
//   - HandleCallback → receive the code, resolve the identity, issue the session cookie
//   - HandleLogout   → clear the session cookie
//   - HandleMe       → return the signed-in user's profile
type AuthHandler struct {
	provider     auth.IdentityProvider
	authService  *service.AuthService
	frontendURL  string
	secureCookie bool // Secure flag; on in production where HTTPS is guaranteed
	errs         *Errors
	logger       *slog.Logger
}

func NewAuthHandler(
	provider auth.IdentityProvider,
	authService *service.AuthService,
	frontendURL string,
	secureCookie bool,
	errs *Errors,
	logger *slog.Logger,
) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &AuthHandler{
		provider:     provider,
		authService:  authService,
		frontendURL:  frontendURL,
		secureCookie: secureCookie,
		errs:         errs,
		logger:       logger,
	}
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /api/auth/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds if both match.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the sign-in.
//
// HTTP: GET /api/auth/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the provider identity
//  3. Upsert the user mirror and sign a session token
//  4. Set the token cookie and send the browser back to the front-end
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		h.errs.Write(w, r, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	if query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		h.errs.Write(w, r, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.redirectTarget("denied"), http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.errs.Write(w, r, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	// --- Step 2: Exchange the code ---
	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.redirectTarget("failed"), http.StatusSeeOther)
		return
	}

	// --- Step 3: Upsert and sign ---
	result, err := h.authService.LoginOrRegister(r.Context(), identity)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.redirectTarget("failed"), http.StatusSeeOther)
		return
	}

	// --- Step 4: Session cookie, back to the app ---
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   h.authService.TokenTTL(),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.frontendURL, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Sessions are stateless JWTs: the token stays valid until it expires, but
// the browser no longer sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/auth/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Unauthorized("Unauthorized - you must be logged in"))
		return
	}

	// A valid token for a deleted user is treated like no session at all,
	// matching RequireAdmin.
	user, err := h.authService.GetUserByID(r.Context(), userID)
	if errors.Is(err, apperror.ErrNotFound) {
		h.errs.Write(w, r, apperror.Unauthorized("Unauthorized - you must be logged in"))
		return
	}
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// redirectTarget appends ?auth=<outcome> to the front-end URL.
func (h *AuthHandler) redirectTarget(outcome string) string {
	u, err := url.Parse(h.frontendURL)
	if err != nil {
		return "/?auth=" + url.QueryEscape(outcome)
	}
	q := u.Query()
	q.Set("auth", outcome)
	u.RawQuery = q.Encode()
	return u.String()
}
