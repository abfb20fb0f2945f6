// ABOUTME: Tests for the botfy-admin commands against a fake backend
// ABOUTME: Each test gets its own XDG_CONFIG_HOME so profile and token files stay isolated

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

type apiCall struct {
	Method   string
	Path     string
	Query    url.Values
	Auth     string
	TenantID string
	Body     []byte
}

type reply struct {
	status int
	body   any
}

type fakeAPI struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]reply
	calls  []apiCall
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{routes: map[string]reply{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, apiCall{
			Method:   r.Method,
			Path:     r.URL.Path,
			Query:    r.URL.Query(),
			Auth:     r.Header.Get("Authorization"),
			TenantID: r.Header.Get("x-tenant-id"),
			Body:     body,
		})
		rep, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		w.WriteHeader(rep.status)
		_ = json.NewEncoder(w).Encode(rep.body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) reply(pattern string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[pattern] = reply{status: status, body: body}
}

func (f *fakeAPI) called(method, path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// isolate points the CLI at a fresh config directory with no token.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("BOTFY_TOKEN", "")
	t.Setenv("BOTFY_API_URL", "")
	t.Setenv("BOTFY_PASSWORD", "")

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLogin_SavesTokenAndProfile(t *testing.T) {
	dir := isolate(t)
	api := newFakeAPI(t)
	api.reply("POST /api/auth/login", http.StatusOK, backend.TokenPair{AccessToken: "tok-1", TokenType: "bearer"})
	api.reply("GET /api/auth/me", http.StatusOK, backend.Me{UserID: "u1", TenantID: "t-9", Plan: "pro", Email: "ana@acme.test"})

	out, err := run(t, "", "--api-url", api.srv.URL, "login", "--email", "ana@acme.test", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as ana@acme.test (tenant t-9, plan Pro)")

	token, err := os.ReadFile(filepath.Join(dir, "botfy", "token"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", string(token))
	info, err := os.Stat(filepath.Join(dir, "botfy", "token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	p, err := loadProfile(filepath.Join(dir, "botfy", "cli.toml"))
	require.NoError(t, err)
	assert.Equal(t, api.srv.URL, p.APIURL)
	assert.Equal(t, "t-9", p.TenantID)
	assert.Equal(t, "ana@acme.test", p.Email)

	me := api.called(http.MethodGet, "/api/auth/me")
	require.Len(t, me, 1)
	assert.Equal(t, "Bearer tok-1", me[0].Auth)
}

func TestLogin_ReadsPasswordFromStdin(t *testing.T) {
	isolate(t)
	api := newFakeAPI(t)
	api.reply("POST /api/auth/login", http.StatusOK, backend.TokenPair{AccessToken: "tok-2"})
	api.reply("GET /api/auth/me", http.StatusOK, backend.Me{TenantID: "t-1"})

	_, err := run(t, "ana@acme.test\ns3cret\n", "--api-url", api.srv.URL, "login")
	require.NoError(t, err)

	calls := api.called(http.MethodPost, "/api/auth/login")
	require.Len(t, calls, 1)
	var body map[string]string
	require.NoError(t, json.Unmarshal(calls[0].Body, &body))
	assert.Equal(t, "ana@acme.test", body["email"])
	assert.Equal(t, "s3cret", body["password"])
}

func TestLogin_BackendErrorIsShown(t *testing.T) {
	isolate(t)
	api := newFakeAPI(t)
	api.reply("POST /api/auth/login", http.StatusBadRequest, map[string]string{"detail": "Credenciais inválidas"})

	_, err := run(t, "", "--api-url", api.srv.URL, "login", "--email", "a@b.c", "--password", "x")
	require.Error(t, err)
	assert.Equal(t, "Credenciais inválidas", err.Error())
	assert.Empty(t, loadToken())
}

func TestLogin_RequiresAPIURL(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "login", "--email", "a@b.c", "--password", "x")
	assert.ErrorContains(t, err, "no API URL")
}

func TestCommands_RequireLogin(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "--api-url", "http://127.0.0.1:1", "agents", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestAgentsList_SendsCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "env-token")
	api := newFakeAPI(t)
	api.reply("GET /api/agents", http.StatusOK, []backend.Agent{
		{ID: "a1", Name: "Sofia", Niche: "dental", Active: true, TeamID: "team-1"},
		{ID: "a2", Name: "Bruno"},
	})

	out, err := run(t, "", "--api-url", api.srv.URL, "--tenant", "t-7", "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sofia")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "inactive")
	assert.Contains(t, out, "team-1")

	calls := api.called(http.MethodGet, "/api/agents")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer env-token", calls[0].Auth)
	assert.Equal(t, "t-7", calls[0].TenantID)
}

func TestUnauthorized_ClearsSavedToken(t *testing.T) {
	isolate(t)
	require.NoError(t, saveToken("stale"))
	api := newFakeAPI(t)
	api.reply("GET /api/agents", http.StatusUnauthorized, map[string]string{"detail": "Token expirado"})

	_, err := run(t, "", "--api-url", api.srv.URL, "agents", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
	assert.Empty(t, loadToken())
}

func TestAgentsToggle(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("GET /api/agents/a1", http.StatusOK, backend.Agent{ID: "a1", Name: "Sofia", Active: true})
	api.reply("PATCH /api/agents/a1", http.StatusOK, backend.Agent{ID: "a1", Name: "Sofia", Active: false})

	out, err := run(t, "", "--api-url", api.srv.URL, "agents", "toggle", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Sofia deactivated")

	calls := api.called(http.MethodPatch, "/api/agents/a1")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"active":false}`, string(calls[0].Body))
}

func TestAgentsCreate_RequiresName(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	_, err := run(t, "", "--api-url", "http://127.0.0.1:1", "agents", "create", "--name", "  ")
	assert.ErrorContains(t, err, "--name is required")
}

func TestAgentsChat_OneShot(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("POST /api/agents/a1/chat", http.StatusOK, backend.Reply{Reply: "Olá! Como posso ajudar?"})

	out, err := run(t, "", "--api-url", api.srv.URL, "agents", "chat", "a1", "oi", "tudo", "bem")
	require.NoError(t, err)
	assert.Contains(t, out, "Olá! Como posso ajudar?")

	calls := api.called(http.MethodPost, "/api/agents/a1/chat")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"message":"oi tudo bem"}`, string(calls[0].Body))
}

func TestChatREPL(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var sent []string
	var out bytes.Buffer
	err := chatREPL(context.Background(), strings.NewReader("hi\n\n  \nfail\nbye\n"), &out, func(msg string) (string, error) {
		sent = append(sent, msg)
		if msg == "fail" {
			return "", &backend.Error{Kind: backend.ErrStatus, Status: 500, Message: "Agente indisponível"}
		}
		return "echo: " + msg, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "fail", "bye"}, sent)
	assert.Contains(t, out.String(), "echo: hi")
	assert.Contains(t, out.String(), "! Agente indisponível")
	assert.Contains(t, out.String(), "echo: bye")
}

func TestChatREPL_StopsOnUnauthorized(t *testing.T) {
	unauthorized := &backend.Error{Kind: backend.ErrUnauthorized, Status: 401, Message: "expired"}
	err := chatREPL(context.Background(), strings.NewReader("hi\nagain\n"), io.Discard, func(string) (string, error) {
		return "", unauthorized
	})
	assert.True(t, errors.Is(err, backend.ErrUnauthorized))
}

func TestDocumentsUpload_EnsuresNamespace(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("GET /api/agents/a1", http.StatusOK, backend.Agent{ID: "a1", Name: "Sofia"})
	api.reply("PATCH /api/agents/a1", http.StatusOK, backend.Agent{ID: "a1"})
	api.reply("POST /api/documents/upload", http.StatusOK, backend.Document{ID: "d1", FileName: "faq.txt"})

	file := filepath.Join(t.TempDir(), "faq.txt")
	require.NoError(t, os.WriteFile(file, []byte("Q: hours? A: 9-18"), 0644))

	out, err := run(t, "", "--api-url", api.srv.URL, "documents", "upload", file, "--agent", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded faq.txt (d1)")

	patch := api.called(http.MethodPatch, "/api/agents/a1")
	require.Len(t, patch, 1)
	assert.JSONEq(t, `{"embedding_namespace":"agent_a1"}`, string(patch[0].Body))

	upload := api.called(http.MethodPost, "/api/documents/upload")
	require.Len(t, upload, 1)
	assert.Equal(t, "agent_a1", upload[0].Query.Get("embedding_namespace"))
	assert.Contains(t, string(upload[0].Body), "Q: hours? A: 9-18")
}

func TestDocumentsList_FiltersByAgent(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("GET /api/documents", http.StatusOK, []backend.Document{
		{ID: "d1", FileName: "precos.pdf", EmbeddingNamespace: "agent_a1"},
		{ID: "d2", FileName: "outro.pdf", EmbeddingNamespace: "agent_a2"},
	})
	api.reply("GET /api/agents/a1", http.StatusOK, backend.Agent{ID: "a1"})

	out, err := run(t, "", "--api-url", api.srv.URL, "documents", "list", "--agent", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "precos.pdf")
	assert.NotContains(t, out, "outro.pdf")
}

func TestTeamsCreate_WithLeader(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("POST /api/teams", http.StatusOK, backend.Team{ID: "tm1", Name: "Vendas"})

	out, err := run(t, "", "--api-url", api.srv.URL, "teams", "create", "--name", "Vendas", "--leader", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created team Vendas (tm1)")

	calls := api.called(http.MethodPost, "/api/teams")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"name":"Vendas","settings":{"leader_agent_id":"a1"}}`, string(calls[0].Body))
}

func TestUsage(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("GET /api/usage", http.StatusOK, backend.Usage{
		YearMonth: "2026-10", Plan: "free", MessagesUsed: 450, MessagesLimit: 500, AgentsCount: 1, AgentsLimit: 1,
	})

	out, err := run(t, "", "--api-url", api.srv.URL, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage for 2026-10 (Free)")
	assert.Regexp(t, `messages\s+450\s+500\s+90`, out)
	assert.Regexp(t, `tokens\s+0\s+∞\s+0`, out)
	assert.Regexp(t, `agents\s+1\s+1\s+100`, out)
}

func TestChannels(t *testing.T) {
	isolate(t)
	t.Setenv("BOTFY_TOKEN", "tok")
	api := newFakeAPI(t)
	api.reply("GET /api/whatsapp/status", http.StatusOK, backend.WhatsAppStatus{Connected: true, ConnectionType: "evolution", AgentID: "a1"})
	api.reply("GET /api/telegram/status", http.StatusOK, backend.TelegramStatus{})

	out, err := run(t, "", "--api-url", api.srv.URL, "channels")
	require.NoError(t, err)
	assert.Contains(t, out, "WhatsApp  connected  via evolution  agent a1")
	assert.Contains(t, out, "Telegram  not connected")
}

func TestWidgetSnippet(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "--api-url", "https://app.botfy.test/api", "--tenant", "t-1", "widget", "snippet", "--agent", "a1", "--position", "left")
	require.NoError(t, err)
	assert.Contains(t, out, `<script src="https://app.botfy.test/widget.js"`)
	assert.Contains(t, out, `data-agent-id="a1"`)
	assert.Contains(t, out, `data-tenant-id="t-1"`)
	assert.Contains(t, out, `data-color="#2563EB"`)
	assert.Contains(t, out, `data-position="left"`)
}

func TestWidgetSnippet_Validation(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "widget", "snippet", "--agent", "a1")
	assert.ErrorContains(t, err, "no tenant")

	_, err = run(t, "", "--tenant", "t-1", "widget", "snippet", "--agent", "a1", "--color", "red")
	assert.Error(t, err)
}

func TestLogout_ForgetsToken(t *testing.T) {
	isolate(t)
	require.NoError(t, saveToken("tok"))
	api := newFakeAPI(t)
	api.reply("POST /api/auth/logout", http.StatusOK, map[string]bool{"ok": true})

	out, err := run(t, "", "--api-url", api.srv.URL, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Empty(t, loadToken())
	assert.Len(t, api.called(http.MethodPost, "/api/auth/logout"), 1)
}

func TestProfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botfy", "cli.toml")

	p, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, &Profile{}, p)

	want := &Profile{APIURL: "https://api.botfy.test", TenantID: "t-1", Locale: "es"}
	require.NoError(t, want.save(path))

	got, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `api_url = "https://api.botfy.test"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Sofia", truncate("Sofia", 10))
	assert.Equal(t, "Assist…", truncate("Assistente", 7))
}
