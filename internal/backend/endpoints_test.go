// ABOUTME: Tests for typed endpoint wrappers against a fake backend
// ABOUTME: Checks paths, methods, payloads and client-side validation

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func recordingClient(t *testing.T, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		q := r.URL.Query()
		q.Del("_path")
		rec.query = q.Encode()
		data, _ := io.ReadAll(r.Body)
		rec.body = nil
		if len(data) > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			assert.NoError(t, json.Unmarshal(data, &rec.body))
		}
		_, _ = w.Write([]byte(response))
	})
	return c, rec
}

var creds = Credentials{Token: "tok", TenantID: "ten-1"}

func TestLoginAndRegister(t *testing.T) {
	c, rec := recordingClient(t, `{"access_token":"a","refresh_token":"r","token_type":"bearer"}`)

	pair, err := c.Login(context.Background(), "ana@acme.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "a", pair.AccessToken)
	assert.Equal(t, "/api/auth/login", rec.path)
	assert.Equal(t, "ana@acme.com", rec.body["email"])

	_, err = c.Register(context.Background(), Registration{CompanyName: "Acme", Email: "ana@acme.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/register", rec.path)
	assert.Equal(t, "free", rec.body["plan"])
	assert.Equal(t, "Acme", rec.body["company_name"])
}

func TestPasswordResetCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"ok":true}`)

	require.NoError(t, c.RequestPasswordReset(context.Background(), "ana@acme.com"))
	assert.Equal(t, "/api/auth/request-password-reset", rec.path)

	require.NoError(t, c.ResetPassword(context.Background(), "tkn", "newpassword"))
	assert.Equal(t, "/api/auth/reset-password", rec.path)
	assert.Equal(t, "newpassword", rec.body["new_password"])

	require.NoError(t, c.VerifyEmail(context.Background(), "vtok"))
	assert.Equal(t, "/api/auth/verify-email", rec.path)
	assert.Equal(t, "vtok", rec.body["token"])
}

func TestAgentCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"id":"a1","name":"Vendas","active":false}`)
	ctx := context.Background()

	_, err := c.CreateAgent(ctx, creds, AgentCreate{Name: "  "})
	assert.ErrorIs(t, err, ErrAgentNameRequired)

	_, err = c.CreateAgent(ctx, creds, AgentCreate{Name: " Vendas ", Niche: "imóveis"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "Vendas", rec.body["name"])

	_, err = c.SetAgentActive(ctx, creds, "a1", false)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/api/agents/a1", rec.path)
	assert.Equal(t, false, rec.body["active"])
	assert.NotContains(t, rec.body, "name")

	require.NoError(t, c.SetAgentTeam(ctx, creds, "a1", ""))
	v, ok := rec.body["team_id"]
	assert.True(t, ok)
	assert.Nil(t, v)

	require.NoError(t, c.DeleteAgent(ctx, creds, "a1"))
	assert.Equal(t, http.MethodDelete, rec.method)
}

func TestEnsureAgentNamespace(t *testing.T) {
	c, rec := recordingClient(t, `{}`)
	ctx := context.Background()

	agent := &Agent{ID: "a1"}
	ns, err := c.EnsureAgentNamespace(ctx, creds, agent)
	require.NoError(t, err)
	assert.Equal(t, "agent_a1", ns)
	assert.Equal(t, "agent_a1", rec.body["embedding_namespace"])
	assert.Equal(t, "agent_a1", agent.EmbeddingNamespace)

	rec.path = ""
	ns, err = c.EnsureAgentNamespace(ctx, creds, &Agent{ID: "a2", EmbeddingNamespace: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", ns)
	assert.Empty(t, rec.path, "no call when a namespace exists")
}

func TestGeneratePromptAndChat(t *testing.T) {
	c, rec := recordingClient(t, `{"prompt":"Você é um SDR...","reply":"Olá!"}`)
	ctx := context.Background()

	prompt, err := c.GeneratePrompt(ctx, creds, PromptBrief{Context: "imobiliária", Tone: "amigável"})
	require.NoError(t, err)
	assert.Equal(t, "Você é um SDR...", prompt)
	assert.Equal(t, "/api/agents/generate-prompt", rec.path)
	assert.Equal(t, "amigável", rec.body["tone"])

	reply, err := c.ChatWithAgent(ctx, creds, "a1", "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá!", reply)
	assert.Equal(t, "/api/agents/a1/chat", rec.path)
}

func TestDocumentCalls(t *testing.T) {
	c, rec := recordingClient(t, `{}`)
	ctx := context.Background()

	_, err := c.UploadDocument(ctx, creds, "", nil, "")
	assert.ErrorIs(t, err, ErrNoFile)

	require.NoError(t, c.RenameDocument(ctx, creds, "d1", "Tabela de preços"))
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/api/documents/d1", rec.path)
	assert.Equal(t, "Tabela de preços", rec.body["file_name"])

	assert.Error(t, c.RenameDocument(ctx, creds, "d1", " "))
}

func TestDocumentsInNamespace(t *testing.T) {
	docs := []Document{
		{ID: "1", EmbeddingNamespace: "agent_a1"},
		{ID: "2", EmbeddingNamespace: "default"},
		{ID: "3", EmbeddingNamespace: "agent_a1"},
	}
	got := DocumentsInNamespace(docs, "agent_a1")
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[1].ID)
}

func TestTeamCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"id":"t1","name":"Comercial","settings":{"leader_agent_id":"a1"},"agents_count":2}`)
	ctx := context.Background()

	team, err := c.CreateTeam(ctx, creds, TeamInput{Name: "Comercial", Settings: &TeamSettings{LeaderAgentID: "a1"}})
	require.NoError(t, err)
	assert.Equal(t, "a1", team.Settings.LeaderAgentID)
	assert.Equal(t, map[string]any{"leader_agent_id": "a1"}, rec.body["settings"])

	_, err = c.UpdateTeam(ctx, creds, "t1", TeamInput{Name: ""})
	assert.Error(t, err)
}

func TestWhatsAppCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"connected":true,"message":"ok","connection_type":"meta"}`)
	ctx := context.Background()

	assert.ErrorIs(t, c.ConnectMeta(ctx, creds, MetaConnect{PhoneNumberID: "123"}), ErrMissingFields)
	assert.ErrorIs(t, c.ConnectEvolution(ctx, creds, EvolutionConnect{BaseURL: "https://evo"}), ErrMissingFields)

	require.NoError(t, c.ConnectEvolution(ctx, creds, EvolutionConnect{BaseURL: "https://evo.acme.com/", APIKey: "k", InstanceName: "acme"}))
	assert.Equal(t, "/api/whatsapp/connect-evolution", rec.path)
	assert.Equal(t, "https://evo.acme.com", rec.body["base_url"])

	require.NoError(t, c.SetWhatsAppAgent(ctx, creds, "a1"))
	assert.Equal(t, "a1", rec.body["agent_id"])

	st, err := c.WhatsAppStatus(ctx, creds)
	require.NoError(t, err)
	assert.True(t, st.Connected)
}

func TestEvolutionQRImageSrc(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,QUJD", (&EvolutionQR{QRCodeBase64: "QUJD"}).QRImageSrc())
	assert.Equal(t, "data:image/png;base64,QUJD", (&EvolutionQR{QRCodeBase64: "data:image/png;base64,QUJD"}).QRImageSrc())
	assert.Empty(t, (&EvolutionQR{}).QRImageSrc())
}

func TestNormalizeBotToken(t *testing.T) {
	valid := "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw-x"
	require.GreaterOrEqual(t, len(valid), 40)

	got, err := NormalizeBotToken(" 123456789:AAHdqTcvCH1v\nGWJxfSeofSAs0K5PALDsaw-x \t")
	require.NoError(t, err)
	assert.Equal(t, valid, got)

	_, err = NormalizeBotToken("short")
	assert.ErrorIs(t, err, ErrInvalidBotToken)

	_, err = NormalizeBotToken(strings.Repeat("x", 71))
	assert.ErrorIs(t, err, ErrInvalidBotToken)
}

func TestTelegramCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"ok":true,"message":"Telegram conectado."}`)
	ctx := context.Background()

	_, err := c.ConnectTelegram(ctx, creds, "abc")
	assert.ErrorIs(t, err, ErrInvalidBotToken)
	assert.Empty(t, rec.path)

	res, err := c.ConnectTelegram(ctx, creds, "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw-x")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "MTIzNDU2Nzg5OkFBSGRxVGN2Q0gxdkdXSnhmU2VvZlNBczBLNVBBTERzYXcteA==", rec.body["bot_token_b64"])

	_, err = c.ConnectTelegramServerToken(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, true, rec.body["use_server_token"])

	require.NoError(t, c.SetTelegramAgent(ctx, creds, ""))
	assert.Equal(t, "/api/telegram/agent", rec.path)
	assert.Nil(t, rec.body["agent_id"])
}

func TestTelegramDeepLink(t *testing.T) {
	assert.Equal(t, "https://t.me/acme_bot?start=t_ten-1", TelegramDeepLink("@acme_bot", "ten-1"))
	assert.Equal(t, "https://t.me/acme_bot", TelegramDeepLink("acme_bot", ""))
	assert.Empty(t, TelegramDeepLink("", "ten-1"))
}

func TestBillingCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"checkout_url":"https://pay.example/c1"}`)
	ctx := context.Background()

	link, err := c.CreateCheckout(ctx, creds, PlanPro, "https://app/ok", "https://app/cancel")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/c1", link)
	assert.Equal(t, "pro", rec.body["plan"])

	_, err = c.BillingPortal(ctx, creds, "https://app/dashboard/billing")
	require.NoError(t, err)
	assert.Equal(t, "/api/billing/portal", rec.path)
	assert.Equal(t, "return_url=https%3A%2F%2Fapp%2Fdashboard%2Fbilling", rec.query)
}

func TestWidgetCalls(t *testing.T) {
	c, rec := recordingClient(t, `{"name":"Vendas","niche":"imóveis","reply":"Olá"}`)
	ctx := context.Background()

	cfg, err := c.WidgetConfig(ctx, "a1", "ten-1")
	require.NoError(t, err)
	assert.Equal(t, "Vendas", cfg.Name)
	assert.Equal(t, "/api/widget/config/a1", rec.path)
	assert.Equal(t, "tenant_id=ten-1", rec.query)

	reply, err := c.WidgetChat(ctx, WidgetChat{AgentID: "a1", TenantID: "ten-1", Message: "oi", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Olá", reply)
	assert.Equal(t, "s1", rec.body["session_id"])
}

func TestTenantHelpers(t *testing.T) {
	ten := &Tenant{CompanyName: "Acme", Settings: map[string]any{}}
	assert.Equal(t, "Acme", ten.DisplayName())
	ten.Settings[SettingDisplayName] = "Acme Imóveis"
	assert.Equal(t, "Acme Imóveis", ten.DisplayName())
	assert.Empty(t, ten.Setting(SettingDefaultLocale))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(10, 0))
	assert.Equal(t, 50, Percent(250, 500))
	assert.Equal(t, 100, Percent(900, 500))
	assert.Equal(t, 0, Percent(0, 500))
}

func TestPlans(t *testing.T) {
	free := LookupPlan("free")
	assert.Equal(t, 1, free.AgentLimit)
	assert.Equal(t, 500, free.MessageLimit)
	assert.Equal(t, 0, free.AgentsRemaining(1))

	pro := LookupPlan("pro")
	assert.Equal(t, 3, pro.AgentsRemaining(2))
	assert.Equal(t, 10000, pro.MessageLimit)

	ent := LookupPlan("enterprise")
	assert.True(t, ent.Unlimited())
	assert.False(t, ent.CanUpgrade())
	assert.Equal(t, -1, ent.AgentsRemaining(99))

	assert.Equal(t, "free", LookupPlan("mystery").Key)
}
