// ABOUTME: HTTP glue for the podium account manager
// ABOUTME: Thin request/response layer over the site and user record operations

package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hscpc/podium/internal/site"
	"github.com/hscpc/podium/internal/store"
	"github.com/hscpc/podium/internal/user"
)

// SessionCookieName is the name of the session cookie
const SessionCookieName = "podium_session"

// OpenStore opens a fresh store handle. Each request acquires its own and
// releases it before responding; no handle is shared across requests.
type OpenStore func() (*store.Store, error)

// Handler serves the podium pages.
type Handler struct {
	open     OpenStore
	sessions *Sessions
	logger   *slog.Logger
}

// New creates a web handler.
func New(open OpenStore, sessions *Sessions) *Handler {
	return &Handler{
		open:     open,
		sessions: sessions,
		logger:   slog.Default().With("component", "web"),
	}
}

// RegisterRoutes registers all routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /createrootuser", h.handleRootUserPage)
	mux.HandleFunc("POST /createrootuser", h.handleRootUserCreate)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("GET /logout", h.handleLogout)
	mux.HandleFunc("GET /resetsystem", h.handleReset)

	h.logger.Info("routes registered")
}

// handleHome serves the home page, or redirects to first-run root user
// creation while the site has no accounts at all.
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	st, ok := h.openStore(w)
	if !ok {
		return
	}
	defer st.Close()

	s, err := site.EnsureInitialized(r.Context(), st)
	if err != nil {
		h.storeError(w, "ensuring site", err)
		return
	}

	n, err := user.Count(r.Context(), st)
	if err != nil {
		h.storeError(w, "counting users", err)
		return
	}
	if n == 0 {
		http.Redirect(w, r, "/createrootuser", http.StatusSeeOther)
		return
	}

	h.renderHome(w, s.Name, h.sessionUsername(r, st))
}

// handleRootUserPage shows the first-run form, but only while no users exist.
func (h *Handler) handleRootUserPage(w http.ResponseWriter, r *http.Request) {
	st, ok := h.openStore(w)
	if !ok {
		return
	}
	defer st.Close()

	s, err := site.EnsureInitialized(r.Context(), st)
	if err != nil {
		h.storeError(w, "ensuring site", err)
		return
	}

	n, err := user.Count(r.Context(), st)
	if err != nil {
		h.storeError(w, "counting users", err)
		return
	}
	if n > 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.renderRootUser(w, s.Name, "")
}

// handleRootUserCreate creates the root account on a virgin system.
func (h *Handler) handleRootUserCreate(w http.ResponseWriter, r *http.Request) {
	st, ok := h.openStore(w)
	if !ok {
		return
	}
	defer st.Close()

	s, err := site.EnsureInitialized(r.Context(), st)
	if err != nil {
		h.storeError(w, "ensuring site", err)
		return
	}

	n, err := user.Count(r.Context(), st)
	if err != nil {
		h.storeError(w, "counting users", err)
		return
	}
	if n > 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" || password != r.FormValue("passwordcheck") {
		h.renderRootUser(w, s.Name, "Username and matching passwords required")
		return
	}

	ru, err := user.Create(r.Context(), st)
	if err != nil {
		h.storeError(w, "creating root user", err)
		return
	}
	if err := ru.SetUsername(r.Context(), username); err != nil {
		h.storeError(w, "setting root username", err)
		return
	}
	if err := ru.SetProperties(r.Context(), user.Properties{Password: &password}); err != nil {
		h.storeError(w, "setting root password", err)
		return
	}
	if err := ru.SetLevel(r.Context(), user.LevelRoot); err != nil {
		h.storeError(w, "setting root level", err)
		return
	}

	// The username claim can lose to a concurrent writer; an account that
	// did not end up valid is removed again rather than left orphaned.
	if !ru.Valid {
		if err := ru.Remove(r.Context()); err != nil {
			h.storeError(w, "removing invalid root user", err)
			return
		}
		h.renderRootUser(w, s.Name, "Username unavailable")
		return
	}

	h.logger.Info("root user created", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogin checks credentials and starts a session. Failures land back
// on the home page without a session cookie; the page itself gives no hint
// whether the username or the password was wrong.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	st, ok := h.openStore(w)
	if !ok {
		return
	}
	defer st.Close()

	username := r.FormValue("username")
	password := r.FormValue("password")

	u, err := user.ByUsername(r.Context(), st, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.storeError(w, "loading user", err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if u.Valid && u.CheckPassword(password) {
		token, err := h.sessions.Issue(u.Username)
		if err != nil {
			h.logger.Error("failed to issue session", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		h.logger.Info("login", "username", u.Username)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the session cookie.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleReset wipes the entire database. Root only.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	st, ok := h.openStore(w)
	if !ok {
		return
	}
	defer st.Close()

	username := h.sessionUsername(r, st)
	if username != "" {
		u, err := user.ByUsername(r.Context(), st, username)
		if err == nil && u.Valid && u.Level == user.LevelRoot {
			if err := st.Reset(r.Context()); err != nil {
				h.storeError(w, "resetting system", err)
				return
			}
			h.logger.Info("system reset", "by", username)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sessionUsername returns the username of the logged-in user, or "" for
// anonymous visitors, expired sessions, and sessions whose account no
// longer exists or lost its validity.
func (h *Handler) sessionUsername(r *http.Request, st *store.Store) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	username, err := h.sessions.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	u, err := user.ByUsername(r.Context(), st, username)
	if err != nil || !u.Valid {
		return ""
	}
	return u.Username
}

// openStore opens a per-request store handle, answering 503 if the store
// is unreachable.
func (h *Handler) openStore(w http.ResponseWriter) (*store.Store, bool) {
	st, err := h.open()
	if err != nil {
		h.logger.Error("failed to open store", "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return st, true
}

// storeError answers a request that failed against the store.
func (h *Handler) storeError(w http.ResponseWriter, doing string, err error) {
	h.logger.Error("store operation failed", "doing", doing, "error", err)
	if errors.Is(err, store.ErrUnavailable) {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}
