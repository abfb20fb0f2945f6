// ABOUTME: Optional forwarding of the widget's public config and chat endpoints
// ABOUTME: Caches agent configs and enforces a per-session cooldown between chat messages

package widget

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/ttlcache"
)

const (
	maxChatBody       = 16 * 1024
	configCacheSize   = 1024
	cooldownCacheSize = 10000
)

// Backend is the subset of the API client the proxy uses.
type Backend interface {
	WidgetConfig(ctx context.Context, agentID, tenantID string) (*backend.WidgetConfig, error)
	WidgetChat(ctx context.Context, in backend.WidgetChat) (string, error)
}

// ProxyConfig configures a Proxy.
type ProxyConfig struct {
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
	ConfigCacheTTL time.Duration
	ChatCooldown   time.Duration
	Logger         *slog.Logger
}

// Proxy forwards /api/widget/* to the backend.
type Proxy struct {
	backend   Backend
	origins   map[string]bool
	configs   *ttlcache.Cache[*backend.WidgetConfig]
	cooldowns *ttlcache.Cache[struct{}]
	logger    *slog.Logger
}

// NewProxy creates a widget proxy. Close releases its caches.
func NewProxy(b Backend, cfg ProxyConfig) *Proxy {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConfigCacheTTL <= 0 {
		cfg.ConfigCacheTTL = 5 * time.Minute
	}
	if cfg.ChatCooldown <= 0 {
		cfg.ChatCooldown = time.Second
	}

	p := &Proxy{
		backend:   b,
		configs:   ttlcache.New[*backend.WidgetConfig](cfg.ConfigCacheTTL, configCacheSize),
		cooldowns: ttlcache.New[struct{}](cfg.ChatCooldown, cooldownCacheSize),
		logger:    logger.With("component", "widget-proxy"),
	}
	if len(cfg.AllowedOrigins) > 0 {
		p.origins = make(map[string]bool, len(cfg.AllowedOrigins))
		for _, o := range cfg.AllowedOrigins {
			p.origins[strings.TrimRight(o, "/")] = true
		}
	}
	return p
}

// Close stops the cache cleanup goroutines.
func (p *Proxy) Close() {
	p.configs.Close()
	p.cooldowns.Close()
}

// RegisterRoutes mounts the proxy under /api/widget.
func (p *Proxy) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/widget/config/{agent_id}", p.cors(p.handleConfig))
	mux.HandleFunc("POST /api/widget/chat", p.cors(p.handleChat))
	mux.HandleFunc("OPTIONS /api/widget/", p.cors(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.Handle("GET /api/widget/widget.js", ScriptHandler())
}

func (p *Proxy) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if p.origins != nil && !p.origins[origin] {
				p.sendError(w, http.StatusForbidden, "Origem não permitida")
				return
			}
			if p.origins == nil {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		next(w, r)
	}
}

func (p *Proxy) handleConfig(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	tenantID := r.URL.Query().Get("tenant_id")
	if agentID == "" || tenantID == "" {
		p.sendError(w, http.StatusBadRequest, "agent_id e tenant_id são obrigatórios")
		return
	}

	key := tenantID + "/" + agentID
	if cfg, ok := p.configs.Get(key); ok {
		p.sendJSON(w, http.StatusOK, cfg)
		return
	}

	cfg, err := p.backend.WidgetConfig(r.Context(), agentID, tenantID)
	if err != nil {
		p.forwardError(w, "widget config", err)
		return
	}
	p.configs.Set(key, cfg)
	p.sendJSON(w, http.StatusOK, cfg)
}

func (p *Proxy) handleChat(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody+1))
	if err != nil || len(data) > maxChatBody {
		p.sendError(w, http.StatusRequestEntityTooLarge, "Mensagem muito longa")
		return
	}

	var in backend.WidgetChat
	if err := json.Unmarshal(data, &in); err != nil {
		p.sendError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.AgentID == "" || in.TenantID == "" {
		p.sendError(w, http.StatusBadRequest, "agent_id e tenant_id são obrigatórios")
		return
	}
	if in.Message == "" {
		p.sendError(w, http.StatusBadRequest, "Mensagem vazia")
		return
	}

	if p.cooldowns.SeenOrMark(cooldownKey(in, r), struct{}{}) {
		p.sendError(w, http.StatusTooManyRequests, "Aguarde um instante antes de enviar outra mensagem.")
		return
	}

	reply, err := p.backend.WidgetChat(r.Context(), in)
	if err != nil {
		p.forwardError(w, "widget chat", err)
		return
	}
	p.sendJSON(w, http.StatusOK, backend.Reply{Reply: reply})
}

// cooldownKey identifies a visitor: their widget session, or their address
// when the script could not persist one.
func cooldownKey(in backend.WidgetChat, r *http.Request) string {
	who := in.SessionID
	if who == "" {
		who = "addr:" + clientAddr(r)
	}
	return in.TenantID + "/" + in.AgentID + "/" + who
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// forwardError passes backend statuses through and turns transport
// failures into 502/504.
func (p *Proxy) forwardError(w http.ResponseWriter, op string, err error) {
	status := backend.StatusCode(err)
	switch {
	case status >= 400:
	case errors.Is(err, backend.ErrTimeout):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		p.logger.Warn(op+" failed", "status", status, "error", err)
	}
	p.sendError(w, status, backend.Message(err))
}

func (p *Proxy) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.logger.Debug("writing widget response", "error", err)
	}
}

// sendError uses the backend's {"detail": ...} shape so widget.js and the
// dashboard's error extraction read it the same way.
func (p *Proxy) sendError(w http.ResponseWriter, status int, message string) {
	p.sendJSON(w, status, map[string]string{"detail": message})
}
