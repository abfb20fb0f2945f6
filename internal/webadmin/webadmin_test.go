// ABOUTME: Test harness for dashboard handlers: a fake backend, a temp SQLite store and signed-in requests
// ABOUTME: Also covers the session gate, CSRF and form nonce guards, 401 handling and preferences

package webadmin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
)

const (
	testToken    = "backend-access-token"
	testTenantID = "tenant-1"
	testCSRF     = "csrf-test-token"
)

var testKeyMaterial = []byte("0123456789abcdef0123456789abcdef")

// recordedCall is one request the fake backend received.
type recordedCall struct {
	Method      string
	Path        string
	Query       url.Values
	Auth        string
	TenantID    string
	ContentType string
	Body        []byte
}

// fakeBackend stands in for the REST API. Unregistered routes answer 404.
type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []recordedCall
	srv    *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{routes: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// handle registers h for "METHOD /api/path".
func (f *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[pattern] = h
}

// reply registers a JSON response for pattern.
func (f *fakeBackend) reply(pattern string, status int, v any) {
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if v != nil {
			_ = json.NewEncoder(w).Encode(v)
		}
	})
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Auth:        r.Header.Get("Authorization"),
		TenantID:    r.Header.Get("x-tenant-id"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	h := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if h == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	h(w, r)
}

// called returns the calls made to method and path.
func (f *fakeBackend) called(method, path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// jsonBody decodes a recorded request body.
func (c recordedCall) jsonBody(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(c.Body, &m))
	return m
}

type testEnv struct {
	admin   *Admin
	store   *store.SQLiteStore
	backend *fakeBackend
	mux     *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sealer, err := store.NewSealer(testKeyMaterial)
	require.NoError(t, err)
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "dashboard.db"), sealer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fb := newFakeBackend(t)
	fb.reply("GET /api/tenants/me", http.StatusOK, backend.Tenant{ID: testTenantID, CompanyName: "Acme", Plan: backend.PlanPro})

	client := backend.New(backend.Options{BaseURL: fb.srv.URL, Timeout: 5 * time.Second})
	admin := New(st, client, auth.NewJWTReader(nil), Config{BaseURL: "https://dash.example.com"})
	t.Cleanup(admin.Close)

	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)

	return &testEnv{admin: admin, store: st, backend: fb, mux: mux}
}

// signIn stores a session directly and returns the cookies of a signed-in browser.
func (e *testEnv) signIn(t *testing.T, role string) []*http.Cookie {
	t.Helper()
	sess := &store.Session{
		ID:        "sess-" + uuid.NewString(),
		Token:     testToken,
		TenantID:  testTenantID,
		Email:     "owner@acme.test",
		Role:      role,
		Locale:    "pt",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, e.store.CreateSession(context.Background(), sess))
	return []*http.Cookie{
		{Name: SessionCookieName, Value: sess.ID},
		{Name: CSRFCookieName, Value: testCSRF},
		{Name: localeCookieName, Value: "en"},
	}
}

func (e *testEnv) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies)
}

// post submits a guarded form: CSRF token and a fresh nonce are added unless set.
func (e *testEnv) post(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form["csrf_token"]; !ok {
		form.Set("csrf_token", testCSRF)
	}
	if _, ok := form[nonceFieldName]; !ok {
		form.Set(nonceFieldName, uuid.NewString())
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookies)
}

// htmx submits a form the way htmx does, with the CSRF header.
func (e *testEnv) htmx(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", testCSRF)
	return e.do(req, cookies)
}

func (e *testEnv) activity(t *testing.T) []store.ActivityEntry {
	t.Helper()
	entries, err := e.store.ListActivity(context.Background(), store.ActivityFilter{TenantID: testTenantID})
	require.NoError(t, err)
	return entries
}

// flashOf decodes the flash cookie set on rec, or nil.
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) *Flash {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name != flashCookieName || c.Value == "" {
			continue
		}
		data, err := base64.RawURLEncoding.DecodeString(c.Value)
		require.NoError(t, err)
		var f Flash
		require.NoError(t, json.Unmarshal(data, &f))
		return &f
	}
	return nil
}

func cookieOf(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRoot_RedirectsBySession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.get("/", env.signIn(t, "owner"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/dashboard/agents", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.get("/dashboard/agents", []*http.Cookie{{Name: SessionCookieName, Value: "unknown"}})
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireSession_HTMXGetsHXRedirect(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx("/dashboard/agents/a1/chat", url.Values{"message": {"hi"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestRequireSession_ExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	sess := &store.Session{
		ID:        "old",
		Token:     testToken,
		TenantID:  testTenantID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.store.CreateSession(context.Background(), sess))

	rec := env.get("/dashboard", []*http.Cookie{{Name: SessionCookieName, Value: "old"}})
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireSession_PassesCredentialsToBackend(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("GET /api/agents", http.StatusOK, []backend.Agent{})
	env.backend.reply("GET /api/teams", http.StatusOK, []backend.Team{})

	rec := env.get("/dashboard/agents", env.signIn(t, "owner"))
	require.Equal(t, http.StatusOK, rec.Code)

	calls := env.backend.called(http.MethodGet, "/api/agents")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer "+testToken, calls[0].Auth)
	assert.Equal(t, testTenantID, calls[0].TenantID)
}

func TestMutating_RejectsBadCSRF(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.signIn(t, "owner")

	rec := env.post("/dashboard/agents/a1/delete", url.Values{"csrf_token": {"wrong"}}, cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, env.backend.called(http.MethodDelete, "/api/agents/a1"))

	f := flashOf(t, rec)
	require.NotNil(t, f)
	assert.Equal(t, flashError, f.Kind)
}

func TestMutating_ReplayedNonceIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("DELETE /api/agents/a1", http.StatusNoContent, nil)
	cookies := env.signIn(t, "owner")

	form := url.Values{nonceFieldName: {"nonce-1"}}
	rec := env.post("/dashboard/agents/a1/delete", form, cookies)
	assert.Equal(t, "/dashboard/agents", rec.Header().Get("Location"))

	rec = env.post("/dashboard/agents/a1/delete", url.Values{nonceFieldName: {"nonce-1"}}, cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, env.backend.called(http.MethodDelete, "/api/agents/a1"), 1)

	f := flashOf(t, rec)
	require.NotNil(t, f)
	assert.Equal(t, flashInfo, f.Kind)
	assert.Equal(t, "This form was already submitted.", f.Message)
}

func TestMutating_MissingNonceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.signIn(t, "owner")

	rec := env.post("/dashboard/agents/a1/delete", url.Values{nonceFieldName: {""}}, cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, env.backend.called(http.MethodDelete, "/api/agents/a1"))
}

func TestHTMXAction_RejectsBadCSRF(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.signIn(t, "owner")

	req := httptest.NewRequest(http.MethodPost, "/dashboard/telegram/check", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request")
}

func TestBackendUnauthorized_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("GET /api/agents", http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
	cookies := env.signIn(t, "owner")

	rec := env.get("/dashboard/agents", cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cleared := cookieOf(rec, SessionCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	_, err := env.store.GetSession(context.Background(), cookies[0].Value)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	f := flashOf(t, rec)
	require.NotNil(t, f)
	assert.Equal(t, "Your session expired. Please sign in again.", f.Message)
}

func TestBackendUnauthorized_OnAction(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("DELETE /api/agents/a1", http.StatusUnauthorized, map[string]string{"detail": "expired"})
	cookies := env.signIn(t, "owner")

	rec := env.post("/dashboard/agents/a1/delete", nil, cookies)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := env.store.GetSession(context.Background(), cookies[0].Value)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestPrefs_SetsLocaleAndTheme(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.signIn(t, "owner")

	form := url.Values{"locale": {"es-AR"}, "theme": {"dark"}}
	rec := env.post("/prefs", form, cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	loc := cookieOf(rec, localeCookieName)
	require.NotNil(t, loc)
	assert.Equal(t, "es", loc.Value)
	th := cookieOf(rec, themeCookieName)
	require.NotNil(t, th)
	assert.Equal(t, "dark", th.Value)

	sess, err := env.store.GetSession(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "es", sess.Locale)
}

func TestPrefs_IgnoresUnknownValues(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"locale": {"fr"}, "theme": {"purple"}}
	rec := env.post("/prefs", form, []*http.Cookie{{Name: CSRFCookieName, Value: testCSRF}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, cookieOf(rec, localeCookieName))
	assert.Nil(t, cookieOf(rec, themeCookieName))
}

func TestPrefs_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post("/prefs", url.Values{"locale": {"en"}}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLayout_RendersShell(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("GET /api/agents", http.StatusOK, []backend.Agent{})
	env.backend.reply("GET /api/teams", http.StatusOK, []backend.Team{})

	rec := env.get("/dashboard/agents", env.signIn(t, "owner"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="en" data-theme="light">`)
	assert.Contains(t, body, `<meta name="csrf-token" content="`+testCSRF+`">`)
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, `<span class="badge">Pro</span>`)
	assert.Contains(t, body, `href="/dashboard/whatsapp"`)
	assert.Contains(t, body, "/static/dashboard.")
}

func TestLayout_ConsumesFlash(t *testing.T) {
	env := newTestEnv(t)
	env.backend.reply("GET /api/agents", http.StatusOK, []backend.Agent{})
	env.backend.reply("GET /api/teams", http.StatusOK, []backend.Team{})
	cookies := env.signIn(t, "owner")

	data, err := json.Marshal(Flash{Kind: flashSuccess, Message: "All good"})
	require.NoError(t, err)
	cookies = append(cookies, &http.Cookie{Name: flashCookieName, Value: base64.RawURLEncoding.EncodeToString(data)})

	rec := env.get("/dashboard/agents", cookies)
	assert.Contains(t, rec.Body.String(), `<div class="flash success" role="status">All good</div>`)

	cleared := cookieOf(rec, flashCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLocale_ResolutionOrder(t *testing.T) {
	env := newTestEnv(t)
	a := env.admin

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "pt", a.locale(req))

	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	assert.Equal(t, "es", a.locale(req))

	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Locale: "en"}))
	assert.Equal(t, "en", a.locale(req))

	req.AddCookie(&http.Cookie{Name: localeCookieName, Value: "pt"})
	assert.Equal(t, "pt", a.locale(req))
}

func TestRedirectBack(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{"no referer", "", "/fallback"},
		{"same host", "http://example.com/dashboard/agents?x=1", "/dashboard/agents?x=1"},
		{"other host", "https://evil.test/phish", "/fallback"},
		{"garbage", "::::", "/fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/x", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			env.admin.redirectBack(rec, req, "/fallback")
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestExternalURL(t *testing.T) {
	a := &Admin{}
	req := httptest.NewRequest(http.MethodGet, "http://dash.local:8080/x", nil)
	assert.Equal(t, "http://dash.local:8080/widget.js", a.externalURL(req, "/widget.js"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://dash.local:8080/widget.js", a.externalURL(req, "/widget.js"))

	a.config.BaseURL = "https://app.botfy.test"
	assert.Equal(t, "https://app.botfy.test/widget.js", a.externalURL(req, "/widget.js"))
}
