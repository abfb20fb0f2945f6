// ABOUTME: Records mirrored from the backend: tenants, agents, documents, teams, channels
// ABOUTME: JSON field names follow the backend's snake_case payloads

package backend

import (
	"path"
	"strings"
)

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Me is the caller as the backend sees it.
type Me struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Plan     string `json:"plan"`
	Email    string `json:"email"`
}

// Tenant is the signed-in company.
type Tenant struct {
	ID          string         `json:"id"`
	CompanyName string         `json:"company_name"`
	Plan        string         `json:"plan"`
	Settings    map[string]any `json:"settings"`
}

// Tenant settings keys the dashboard writes.
const (
	SettingDisplayName   = "display_name"
	SettingDefaultLocale = "default_locale"
)

// DisplayName prefers the display_name setting over the registered company name.
func (t *Tenant) DisplayName() string {
	if s, ok := t.Settings[SettingDisplayName].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return t.CompanyName
}

// Setting returns a string setting or "".
func (t *Tenant) Setting(key string) string {
	s, _ := t.Settings[key].(string)
	return s
}

// Metrics are the tenant's headline counters.
type Metrics struct {
	AgentsCount        int    `json:"agents_count"`
	ConversationsCount int    `json:"conversations_count"`
	LeadsCount         int    `json:"leads_count"`
	MessagesThisMonth  int    `json:"messages_this_month"`
	Plan               string `json:"plan"`
}

// Usage is the current month's consumption against plan limits.
// A limit of zero means unlimited.
type Usage struct {
	YearMonth      string  `json:"year_month"`
	MessagesUsed   int     `json:"messages_used"`
	MessagesLimit  int     `json:"messages_limit"`
	TokensUsed     int     `json:"tokens_used"`
	TokensLimit    int     `json:"tokens_limit"`
	StorageMB      float64 `json:"storage_mb"`
	StorageLimitMB float64 `json:"storage_limit_mb"`
	DocumentsCount int     `json:"documents_count"`
	DocumentsLimit int     `json:"documents_limit"`
	AgentsCount    int     `json:"agents_count"`
	AgentsLimit    int     `json:"agents_limit"`
	Plan           string  `json:"plan"`
}

// Percent returns used/limit as a whole percentage clamped to 0..100.
// Unlimited (limit <= 0) reports 0.
func Percent(used, limit float64) int {
	if limit <= 0 || used <= 0 {
		return 0
	}
	p := int(used * 100 / limit)
	if p > 100 {
		return 100
	}
	return p
}

// AgentSettings holds per-agent options stored by the backend as JSON.
type AgentSettings struct {
	CanDelegateTo []string `json:"can_delegate_to,omitempty"`
}

// Agent is an AI persona configured by the tenant.
type Agent struct {
	ID                 string        `json:"id"`
	TenantID           string        `json:"tenant_id"`
	Name               string        `json:"name"`
	Niche              string        `json:"niche"`
	PromptCustom       string        `json:"prompt_custom"`
	Active             bool          `json:"active"`
	EmbeddingNamespace string        `json:"embedding_namespace,omitempty"`
	TeamID             string        `json:"team_id,omitempty"`
	Settings           AgentSettings `json:"settings"`
}

// AgentNamespace is the document namespace reserved for an agent.
func AgentNamespace(agentID string) string {
	return "agent_" + agentID
}

// Namespace returns the agent's document namespace, falling back to the reserved one.
func (a *Agent) Namespace() string {
	if a.EmbeddingNamespace != "" {
		return a.EmbeddingNamespace
	}
	return AgentNamespace(a.ID)
}

// AgentCreate is the body of POST /agents.
type AgentCreate struct {
	Name         string `json:"name"`
	Niche        string `json:"niche,omitempty"`
	PromptCustom string `json:"prompt_custom,omitempty"`
}

// AgentUpdate is the body of PATCH /agents/{id}. Nil fields are left alone.
type AgentUpdate struct {
	Name               *string        `json:"name,omitempty"`
	Niche              *string        `json:"niche,omitempty"`
	PromptCustom       *string        `json:"prompt_custom,omitempty"`
	Active             *bool          `json:"active,omitempty"`
	EmbeddingNamespace *string        `json:"embedding_namespace,omitempty"`
	Settings           *AgentSettings `json:"settings,omitempty"`
}

// PromptBrief feeds the AI prompt generator.
type PromptBrief struct {
	Context  string `json:"context"`
	Audience string `json:"audience"`
	Tone     string `json:"tone"`
	Goal     string `json:"goal"`
}

// Document is an uploaded knowledge-base file.
type Document struct {
	ID                 string  `json:"id"`
	TenantID           string  `json:"tenant_id"`
	FilePath           string  `json:"file_path"`
	FileName           string  `json:"file_name,omitempty"`
	FileSizeMB         float64 `json:"file_size_mb,omitempty"`
	FileType           string  `json:"file_type,omitempty"`
	EmbeddingNamespace string  `json:"embedding_namespace"`
	SourceURL          string  `json:"source_url,omitempty"`
	Status             string  `json:"status,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// DisplayName is the file name, or the last element of the stored path.
func (d *Document) DisplayName() string {
	if d.FileName != "" {
		return d.FileName
	}
	if d.FilePath == "" {
		return d.ID
	}
	return path.Base(d.FilePath)
}

// TeamSettings holds team options stored by the backend as JSON.
type TeamSettings struct {
	LeaderAgentID string `json:"leader_agent_id,omitempty"`
}

// Team groups agents under a leader.
type Team struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Settings    TeamSettings `json:"settings"`
	AgentsCount int          `json:"agents_count"`
}

// TeamInput is the body for creating or updating a team.
type TeamInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Settings    *TeamSettings `json:"settings,omitempty"`
}

// WhatsAppStatus describes the tenant's WhatsApp connection.
type WhatsAppStatus struct {
	Connected         bool   `json:"connected"`
	Message           string `json:"message"`
	PhoneNumberIDMask string `json:"phone_number_id_mask,omitempty"`
	ConnectionType    string `json:"connection_type,omitempty"` // "meta" or "evolution"
	AgentID           string `json:"agent_id,omitempty"`
}

// MetaConnect connects through the Meta Cloud API.
type MetaConnect struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
}

// EvolutionConnect connects through a self-hosted Evolution API.
type EvolutionConnect struct {
	BaseURL      string `json:"base_url"`
	APIKey       string `json:"api_key"`
	InstanceName string `json:"instance_name"`
}

// EvolutionQR is a pairing QR issued by the platform's Evolution instance.
type EvolutionQR struct {
	InstanceName string `json:"instance_name"`
	QRCodeBase64 string `json:"qr_code_base64"`
	PairingCode  string `json:"pairing_code,omitempty"`
}

// QRImageSrc returns a value usable as an <img src>, adding the data URI prefix when missing.
func (q *EvolutionQR) QRImageSrc() string {
	if q.QRCodeBase64 == "" || strings.HasPrefix(q.QRCodeBase64, "data:") {
		return q.QRCodeBase64
	}
	return "data:image/png;base64," + q.QRCodeBase64
}

// TelegramStatus describes the tenant's Telegram bot.
type TelegramStatus struct {
	BotUsername string `json:"bot_username,omitempty"`
	Connected   bool   `json:"connected"`
	AgentID     string `json:"agent_id,omitempty"`
}

// ServerTokenCheck reports whether the platform-wide Telegram token works.
type ServerTokenCheck struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the generic {ok, message} acknowledgement.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// RedirectURL is a billing redirect. The backend has answered with url,
// checkout_url and portal_url over time.
type RedirectURL struct {
	URL         string `json:"url,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	PortalURL   string `json:"portal_url,omitempty"`
}

// Link returns whichever URL the backend filled in.
func (r *RedirectURL) Link() string {
	for _, s := range []string{r.URL, r.CheckoutURL, r.PortalURL} {
		if s != "" {
			return s
		}
	}
	return ""
}

// WidgetConfig is the public agent info the widget shows.
type WidgetConfig struct {
	Name  string `json:"name"`
	Niche string `json:"niche,omitempty"`
}

// WidgetChat is one visitor message sent through the widget.
type WidgetChat struct {
	AgentID   string `json:"agent_id"`
	TenantID  string `json:"tenant_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Reply is an agent's chat answer.
type Reply struct {
	Reply string `json:"reply"`
}
