// Package server runs the botfy-dashboard HTTP process.
//
// # Overview
//
// Server owns every long-lived component of the dashboard: the SQLite
// session store, the backend API client, the dashboard handlers, the
// optional widget proxy and the HTTP listener.
//
// # Routes
//
//   - GET /healthz - liveness
//   - GET /readyz - readiness (session store ping)
//   - GET /static/ - fingerprinted dashboard assets
//   - GET /widget.js - embeddable chat widget
//   - /api/widget/* - widget proxy, when widget.proxy is set
//   - everything else - dashboard pages (package webadmin)
//
// Every request gets an X-Request-ID that is forwarded to the backend.
//
// # Lifecycle
//
//	srv, err := server.New(cfg, logger)
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	err = srv.Run(ctx) // returns after a graceful shutdown
//
// With tailscale.enabled the listener comes from tsnet instead of
// server.http_addr: Funnel on :443, tailnet certificates on :443 or plain
// HTTP on :80.
package server
