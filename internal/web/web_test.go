package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hscpc/podium/internal/store"
	"github.com/hscpc/podium/internal/user"
)

// setupHandler wires a Handler onto an in-process Redis. The returned
// opener hands out a fresh handle per call, the way the server does per
// request.
func setupHandler(t *testing.T) (*Handler, OpenStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	open := func() (*store.Store, error) {
		return store.Open("redis://"+mr.Addr(), store.DBTest)
	}

	sessions := NewSessions([]byte("test-secret"), time.Hour)
	return New(open, sessions), open
}

func serve(t *testing.T, h *Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// createRootUser drives the first-run flow through the handler.
func createRootUser(t *testing.T, h *Handler, username, password string) {
	t.Helper()
	rec := serve(t, h, postForm("/createrootuser", url.Values{
		"username":      {username},
		"password":      {password},
		"passwordcheck": {password},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHome_VirginSystemRedirects(t *testing.T) {
	h, _ := setupHandler(t)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/createrootuser", rec.Header().Get("Location"))
}

func TestHome_WithUsers(t *testing.T) {
	h, _ := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "HSCPC")
}

func TestRootUserPage_Virgin(t *testing.T) {
	h, _ := setupHandler(t)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/createrootuser", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter ROOT USER credentials")
}

func TestRootUserCreate(t *testing.T) {
	h, open := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	st, err := open()
	require.NoError(t, err)
	defer st.Close()

	u, err := user.ByUsername(context.Background(), st, "rootuser")
	require.NoError(t, err)
	assert.True(t, u.Valid)
	assert.Equal(t, user.LevelRoot, u.Level)
	assert.True(t, u.CheckPassword("rootpass"))
}

func TestRootUserCreate_PasswordMismatch(t *testing.T) {
	h, _ := setupHandler(t)

	rec := serve(t, h, postForm("/createrootuser", url.Values{
		"username":      {"rootuser"},
		"password":      {"rootpass"},
		"passwordcheck": {"rootpassx"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter ROOT USER credentials")
}

func TestRootUserCreate_EmptyUsername(t *testing.T) {
	h, open := setupHandler(t)

	rec := serve(t, h, postForm("/createrootuser", url.Values{
		"username":      {""},
		"password":      {"rootpass"},
		"passwordcheck": {"rootpass"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter ROOT USER credentials")

	st, err := open()
	require.NoError(t, err)
	defer st.Close()

	n, err := user.Count(context.Background(), st)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRootUserCreate_OnlyOnce(t *testing.T) {
	h, _ := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	// Page and form both bounce once any user exists
	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/createrootuser", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = serve(t, h, postForm("/createrootuser", url.Values{
		"username":      {"second"},
		"password":      {"p"},
		"passwordcheck": {"p"},
	}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLogin(t *testing.T) {
	h, _ := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	rec := serve(t, h, postForm("/login", url.Values{
		"username": {"rootuser"},
		"password": {"rootpass"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session, "login should set a session cookie")

	// The home page greets the logged-in user
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	rec = serve(t, h, req)
	assert.Contains(t, rec.Body.String(), "rootuser")
}

func TestLogin_WrongPassword(t *testing.T) {
	h, _ := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	rec := serve(t, h, postForm("/login", url.Values{
		"username": {"rootuser"},
		"password": {"wrong"},
	}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, SessionCookieName, c.Name, "failed login must not set a session")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	h, _ := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	rec := serve(t, h, postForm("/login", url.Values{
		"username": {"nobody"},
		"password": {"whatever"},
	}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	h, _ := setupHandler(t)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/logout", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout should clear the session cookie")
}

func TestReset_RootOnly(t *testing.T) {
	h, open := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	login := func(username, password string) *http.Cookie {
		rec := serve(t, h, postForm("/login", url.Values{
			"username": {username},
			"password": {password},
		}))
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookieName {
				return c
			}
		}
		return nil
	}

	// A non-root contestant cannot reset
	st, err := open()
	require.NoError(t, err)
	ctx := context.Background()
	pw := "fredpass"
	fred, err := user.Create(ctx, st)
	require.NoError(t, err)
	require.NoError(t, fred.SetUsername(ctx, "fred"))
	require.NoError(t, fred.SetProperties(ctx, user.Properties{Password: &pw}))
	require.NoError(t, fred.SetLevel(ctx, user.LevelContestant))
	st.Close()

	cookie := login("fred", "fredpass")
	require.NotNil(t, cookie)
	req := httptest.NewRequest(http.MethodGet, "/resetsystem", nil)
	req.AddCookie(cookie)
	serve(t, h, req)

	st, err = open()
	require.NoError(t, err)
	n, err := user.Count(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "non-root reset must be ignored")
	st.Close()

	// Root can
	cookie = login("rootuser", "rootpass")
	require.NotNil(t, cookie)
	req = httptest.NewRequest(http.MethodGet, "/resetsystem", nil)
	req.AddCookie(cookie)
	rec := serve(t, h, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	st, err = open()
	require.NoError(t, err)
	n, err = user.Count(ctx, st)
	require.NoError(t, err)
	assert.Zero(t, n)
	st.Close()
}

func TestReset_Anonymous(t *testing.T) {
	h, open := setupHandler(t)
	createRootUser(t, h, "rootuser", "rootpass")

	serve(t, h, httptest.NewRequest(http.MethodGet, "/resetsystem", nil))

	st, err := open()
	require.NoError(t, err)
	defer st.Close()
	n, err := user.Count(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreDown(t *testing.T) {
	sessions := NewSessions([]byte("test-secret"), time.Hour)
	h := New(func() (*store.Store, error) {
		// Nothing listens here
		return store.Open("redis://127.0.0.1:1", store.DBTest)
	}, sessions)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
