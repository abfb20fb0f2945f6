// Package config handles configuration loading for botfy-dashboard.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Missing optional values receive defaults before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BOTFY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/botfy/dashboard.yaml
//  3. ~/.config/botfy/dashboard.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  url: "${BOTFY_API_URL}"
//	session:
//	  secret: "${BOTFY_SESSION_SECRET}"
//
// A .env file in the working directory is loaded by the binaries before
// the config is read, so values defined there are visible to expansion.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	backend:
//	  timeout: "15s"
//	  upload_timeout: "60s"
//	session:
//	  max_age: "168h"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:3000"
//
//	database:
//	  path: "~/.local/share/botfy/dashboard.db"
//	  driver: "sqlite"          # or "sqlite3" for the cgo driver
//
//	backend:
//	  url: "https://api.example.com"   # "/api" is appended when missing
//	  jwt_secret: ""                   # optional HS256 verification
//
//	session:
//	  secret: "<base64, 32+ bytes>"    # seals bearer tokens at rest
//
//	webadmin:
//	  base_url: "https://app.example.com"
//	  default_locale: "pt"
//	  widget_api_url: "https://api.example.com/api"
//
//	widget:
//	  proxy: false
//	  allowed_origins: ["https://shop.example.com"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "botfy-dashboard"
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
package config
