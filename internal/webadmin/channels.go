// ABOUTME: WhatsApp and Telegram channel pages: status, connect, agent binding, disconnect
// ABOUTME: Evolution QR pairing and the server token check are htmx fragments

package webadmin

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
)

type whatsappPageData struct {
	Layout
	Status             *backend.WhatsAppStatus
	EvolutionAvailable bool
	Agents             []backend.Agent
}

type telegramPageData struct {
	Layout
	Status   *backend.TelegramStatus
	DeepLink string
	Agents   []backend.Agent
}

type evolutionQRData struct {
	QR    *backend.EvolutionQR
	Image template.URL // data URI for the img tag
	Error string
}

type telegramCheckData struct {
	Check *backend.ServerTokenCheck
	Error string
}

// handleWhatsAppPage shows the connection status and both connect forms
func (a *Admin) handleWhatsAppPage(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	status, err := a.backend.WhatsAppStatus(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := whatsappPageData{
		Layout: a.layout(w, r, "whatsapp.title", "whatsapp"),
		Status: status,
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}
	if ok, err := a.backend.EvolutionAvailable(r.Context(), creds); err == nil {
		data.EvolutionAvailable = ok
	}
	if agents, err := a.backend.ListAgents(r.Context(), creds); err == nil {
		data.Agents = agents
	}

	a.render(w, r, "whatsapp.html", data)
}

// handleWhatsAppMeta connects through the Meta Cloud API
func (a *Admin) handleWhatsAppMeta(w http.ResponseWriter, r *http.Request) {
	in := backend.MetaConnect{
		PhoneNumberID: r.FormValue("phone_number_id"),
		AccessToken:   r.FormValue("access_token"),
	}
	if err := a.backend.ConnectMeta(r.Context(), credentials(r), in); err != nil {
		a.actionFailed(w, r, err, "/dashboard/whatsapp")
		return
	}

	a.record(r, store.ActionConnectWhatsApp, "whatsapp", "", map[string]any{"connection_type": "meta"})
	a.succeeded(w, r, "flash.whatsapp_connected", "/dashboard/whatsapp")
}

// handleWhatsAppEvolution connects a self-hosted Evolution API instance
func (a *Admin) handleWhatsAppEvolution(w http.ResponseWriter, r *http.Request) {
	in := backend.EvolutionConnect{
		BaseURL:      r.FormValue("base_url"),
		APIKey:       r.FormValue("api_key"),
		InstanceName: r.FormValue("instance_name"),
	}
	if err := a.backend.ConnectEvolution(r.Context(), credentials(r), in); err != nil {
		a.actionFailed(w, r, err, "/dashboard/whatsapp")
		return
	}

	a.record(r, store.ActionConnectWhatsApp, "whatsapp", "", map[string]any{
		"connection_type": "evolution",
		"instance_name":   strings.TrimSpace(in.InstanceName),
	})
	a.succeeded(w, r, "flash.whatsapp_connected", "/dashboard/whatsapp")
}

// handleWhatsAppQR requests a pairing QR code (htmx)
func (a *Admin) handleWhatsAppQR(w http.ResponseWriter, r *http.Request) {
	var data evolutionQRData
	qr, err := a.backend.RequestEvolutionQR(r.Context(), credentials(r))
	switch {
	case err != nil:
		if a.sessionExpired(w, r, err) {
			return
		}
		data.Error = a.errorMessage(r, err)
	case qr.QRCodeBase64 == "" && qr.PairingCode == "":
		data.Error = a.t(r, "whatsapp.qr_unavailable")
	default:
		data.QR = qr
		data.Image = template.URL(qr.QRImageSrc())
		a.record(r, store.ActionConnectWhatsApp, "whatsapp", "", map[string]any{
			"connection_type": "evolution_qr",
			"instance_name":   qr.InstanceName,
		})
	}
	a.renderPartial(w, r, "evolution_qr.html", data)
}

// handleWhatsAppAgent binds the answering agent
func (a *Admin) handleWhatsAppAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.FormValue("agent_id")
	if err := a.backend.SetWhatsAppAgent(r.Context(), credentials(r), agentID); err != nil {
		a.actionFailed(w, r, err, "/dashboard/whatsapp")
		return
	}

	a.record(r, store.ActionAssignChannelAgent, "whatsapp", agentID, nil)
	a.succeeded(w, r, "flash.channel_agent_saved", "/dashboard/whatsapp")
}

// handleWhatsAppDisconnect removes the connection
func (a *Admin) handleWhatsAppDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.DisconnectWhatsApp(r.Context(), credentials(r)); err != nil {
		a.actionFailed(w, r, err, "/dashboard/whatsapp")
		return
	}

	a.record(r, store.ActionDisconnectWhatsApp, "whatsapp", "", nil)
	a.succeeded(w, r, "flash.whatsapp_disconnected", "/dashboard/whatsapp")
}

// handleTelegramPage shows the bot status, deep link and connect options
func (a *Admin) handleTelegramPage(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	status, err := a.backend.TelegramStatus(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := telegramPageData{
		Layout: a.layout(w, r, "telegram.title", "telegram"),
		Status: status,
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}
	if status != nil && status.Connected {
		data.DeepLink = backend.TelegramDeepLink(status.BotUsername, identity(r).TenantID)
	}
	if agents, err := a.backend.ListAgents(r.Context(), creds); err == nil {
		data.Agents = agents
	}

	a.render(w, r, "telegram.html", data)
}

// telegramConnected finishes any of the three connect flows
func (a *Admin) telegramConnected(w http.ResponseWriter, r *http.Request, res *backend.Result, method string) {
	a.record(r, store.ActionConnectTelegram, "telegram", "", map[string]any{"method": method})
	if res != nil && res.Message != "" {
		a.flash(w, r, flashSuccess, res.Message)
		http.Redirect(w, r, "/dashboard/telegram", http.StatusSeeOther)
		return
	}
	a.succeeded(w, r, "flash.telegram_connected", "/dashboard/telegram")
}

// handleTelegramConnect connects a bot by pasted token
func (a *Admin) handleTelegramConnect(w http.ResponseWriter, r *http.Request) {
	res, err := a.backend.ConnectTelegram(r.Context(), credentials(r), r.FormValue("bot_token"))
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}
	a.telegramConnected(w, r, res, "token")
}

// handleTelegramServerToken connects with the platform's bot
func (a *Admin) handleTelegramServerToken(w http.ResponseWriter, r *http.Request) {
	res, err := a.backend.ConnectTelegramServerToken(r.Context(), credentials(r))
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}
	a.telegramConnected(w, r, res, "server_token")
}

// handleTelegramFile connects with a token file upload
func (a *Admin) handleTelegramFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("token_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = backend.ErrNoFile
		}
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}
	defer func() { _ = file.Close() }()

	res, err := a.backend.ConnectTelegramFile(r.Context(), credentials(r), header.Filename, file)
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}
	a.telegramConnected(w, r, res, "file")
}

// handleTelegramCheck reports whether the platform token works (htmx)
func (a *Admin) handleTelegramCheck(w http.ResponseWriter, r *http.Request) {
	var data telegramCheckData
	check, err := a.backend.CheckServerToken(r.Context(), credentials(r))
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		data.Error = a.errorMessage(r, err)
	}
	data.Check = check
	a.renderPartial(w, r, "telegram_check.html", data)
}

// handleTelegramAgent binds the answering agent
func (a *Admin) handleTelegramAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.FormValue("agent_id")
	if err := a.backend.SetTelegramAgent(r.Context(), credentials(r), agentID); err != nil {
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}

	a.record(r, store.ActionAssignChannelAgent, "telegram", agentID, nil)
	a.succeeded(w, r, "flash.channel_agent_saved", "/dashboard/telegram")
}

// handleTelegramDisconnect removes the bot
func (a *Admin) handleTelegramDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.DisconnectTelegram(r.Context(), credentials(r)); err != nil {
		a.actionFailed(w, r, err, "/dashboard/telegram")
		return
	}

	a.record(r, store.ActionDisconnectTelegram, "telegram", "", nil)
	a.succeeded(w, r, "flash.telegram_disconnected", "/dashboard/telegram")
}
