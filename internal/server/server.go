// ABOUTME: Server wires config, session store, backend client and dashboard routes together
// ABOUTME: Owns the HTTP listener (plain TCP or tsnet), the session janitor and graceful shutdown

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/botfy/botfy-dashboard/internal/assets"
	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/config"
	"github.com/botfy/botfy-dashboard/internal/store"
	"github.com/botfy/botfy-dashboard/internal/webadmin"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

const shutdownTimeout = 5 * time.Second

// Server is the dashboard process: one HTTP server in front of the backend.
type Server struct {
	config      *config.Config
	store       *store.SQLiteStore
	backend     *backend.Client
	webAdmin    *webadmin.Admin
	widgetProxy *widget.Proxy
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// baseURL is the dashboard's external URL; empty means derive it per request
	baseURL string
}

// determineBaseURL returns the configured external URL of the dashboard.
// Priority: webadmin.base_url > BOTFY_DASHBOARD_URL. Empty lets pages derive
// absolute links from the request host.
func determineBaseURL(cfg *config.Config, logger *slog.Logger) string {
	if cfg.WebAdmin.BaseURL != "" {
		return strings.TrimRight(cfg.WebAdmin.BaseURL, "/")
	}
	if envURL := os.Getenv("BOTFY_DASHBOARD_URL"); envURL != "" {
		return strings.TrimRight(envURL, "/")
	}
	if cfg.Tailscale.Enabled {
		logger.Warn("webadmin.base_url/BOTFY_DASHBOARD_URL not set - billing return URLs and widget snippets will use the request host")
	}
	return ""
}

// initStore opens the session database. BOTFY_DB_PATH overrides database.path.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("BOTFY_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	key, err := cfg.SessionKey()
	if err != nil {
		return nil, err
	}
	sealer, err := store.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	s, err := store.NewSQLiteStore(dbPath, sealer, store.WithDriver(cfg.Database.Driver))
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New builds a Server from cfg. Nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	baseURL := determineBaseURL(cfg, logger)
	client := backend.New(backend.Options{
		BaseURL:       cfg.Backend.URL,
		Timeout:       cfg.Backend.Timeout,
		UploadTimeout: cfg.Backend.UploadTimeout,
		Logger:        logger,
	})

	if cfg.Backend.URL == "" {
		logger.Warn("backend.url not set - using the default backend address", "backend", client.BaseURL())
	}

	claims := auth.NewJWTReader([]byte(cfg.Backend.JWTSecret))
	if !claims.Verifies() {
		logger.Warn("backend.jwt_secret not set - token claims are decoded without signature verification")
	}

	srv := &Server{
		config:  cfg,
		store:   st,
		backend: client,
		logger:  logger.With("component", "server"),
		baseURL: baseURL,
	}

	srv.webAdmin = webadmin.New(st, client, claims, webadmin.Config{
		BaseURL:       baseURL,
		WidgetAPIURL:  cfg.WebAdmin.WidgetAPIURL,
		DefaultLocale: cfg.WebAdmin.DefaultLocale,
		SessionMaxAge: cfg.Session.MaxAge,
		NonceTTL:      cfg.WebAdmin.NonceTTL,
	})

	if cfg.Widget.Proxy {
		srv.widgetProxy = widget.NewProxy(client, widget.ProxyConfig{
			AllowedOrigins: cfg.Widget.AllowedOrigins,
			ConfigCacheTTL: cfg.Widget.ConfigCacheTTL,
			ChatCooldown:   cfg.Widget.ChatCooldown,
			Logger:         logger,
		})
	}

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.logger.Info("dashboard configured",
		"backend", client.BaseURL(),
		"base_url", baseURL,
		"widget_proxy", cfg.Widget.Proxy,
	)
	return srv, nil
}

// Handler returns the full route tree wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /static/", http.StripPrefix("/static/", assets.FileServer()))
	mux.Handle("GET /widget.js", widget.ScriptHandler())

	if s.widgetProxy != nil {
		s.widgetProxy.RegisterRoutes(mux)
	}
	s.webAdmin.RegisterRoutes(mux)

	return requestID(requestLog(s.logger, mux))
}

func (s *Server) listenTCP() (net.Listener, error) {
	s.logger.Info("starting dashboard", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.listenTailscale(ctx)
	}
	return s.listenTCP()
}

// Run serves until ctx is canceled or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.runJanitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serveErr = <-errCh:
		s.logger.Error("server error", "error", serveErr)
	}

	stopJanitor()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// runJanitor deletes expired sessions every session.cleanup_interval.
func (s *Server) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.config.Session.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(ctx)
		}
	}
}

func (s *Server) sweepSessions(ctx context.Context) {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("session cleanup failed", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}

func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "botfy-dashboard", "tailscale"), nil
}

func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set tailscale.auth_key or TS_AUTHKEY")
	}
	return authKey, nil
}

// listenTailscale joins the tailnet and returns the dashboard listener:
// Funnel on :443, tailnet TLS on :443, or plain HTTP on :80.
func (s *Server) listenTailscale(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	switch {
	case tsCfg.Funnel:
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := s.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return s.listenTailscaleTLS()
	default:
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = strings.TrimSuffix(status.Self.DNSName, ".")
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
	if s.baseURL == "" && dnsName != "" {
		s.logger.Info("set webadmin.base_url to pin absolute links", "suggested", "https://"+dnsName)
	}
}

func (s *Server) listenTailscaleTLS() (net.Listener, error) {
	s.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := s.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := s.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases caches, tsnet and the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dashboard")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}

	s.webAdmin.Close()
	if s.widgetProxy != nil {
		s.widgetProxy.Close()
	}

	errs = appendCloseError(errs, "store close", s.store.Close())
	return errors.Join(errs...)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports whether the session store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
