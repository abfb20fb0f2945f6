// ABOUTME: Entry point for the botfy-dashboard server
// ABOUTME: Subcommands: serve (run the dashboard), init (write a config), health (probe a running server)

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/botfy/botfy-dashboard/internal/config"
	"github.com/botfy/botfy-dashboard/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
  _           _    __
 | |__   ___ | |_ / _|_   _
 | '_ \ / _ \| __| |_| | | |
 | |_) | (_) | |_|  _| |_| |
 |_.__/ \___/ \__|_|  \__, |
                      |___/  dashboard
`

// getConfigPath returns the path to the dashboard config file.
// Priority: BOTFY_CONFIG env var > XDG_CONFIG_HOME/botfy/dashboard.yaml > ~/.config/botfy/dashboard.yaml
func getConfigPath() string {
	if envPath := os.Getenv("BOTFY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "dashboard.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "botfy", "dashboard.yaml")
}

// getDataPath returns the botfy data directory.
// Priority: XDG_DATA_HOME/botfy > ~/.local/share/botfy
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "botfy")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: botfy-dashboard <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the dashboard server")
		fmt.Println("  init      Create a new config file interactively")
		fmt.Println("  health    Check dashboard health")
		os.Exit(1)
	}

	// a missing .env is not an error
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "version", "--version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	if cfg.Backend.URL != "" {
		fmt.Printf("Backend:   %s\n", cfg.Backend.URL)
	} else {
		fmt.Printf("Backend:   ")
		gray.Println("(same origin)")
	}
	if cfg.Widget.Proxy {
		green.Print("    ▶ ")
		fmt.Println("Widget:    proxy enabled at /api/widget/")
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting botfy-dashboard",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"version", version,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, path := range []string{"/healthz", "/readyz"} {
		url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unhealthy: %s returned status %d", path, resp.StatusCode)
		}
	}

	color.Green("healthy")
	return nil
}

// initAnswers are the values runInit collects before writing the file.
type initAnswers struct {
	HTTPAddr      string
	BackendURL    string
	DBPath        string
	DefaultLocale string
	SessionSecret string
	WidgetProxy   bool
	Tailscale     bool
	TSHostname    string
	TSAuthKey     string
	TSFunnel      bool
	LogLevel      string
	LogFormat     string
}

func newSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// renderConfig produces the YAML written by init.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# botfy-dashboard configuration\n")
	cfg.WriteString("# Generated by botfy-dashboard init\n\n")

	cfg.WriteString("server:\n")
	fmt.Fprintf(&cfg, "  http_addr: %q\n\n", a.HTTPAddr)

	cfg.WriteString("database:\n")
	fmt.Fprintf(&cfg, "  path: %q\n\n", a.DBPath)

	cfg.WriteString("backend:\n")
	if a.BackendURL != "" {
		fmt.Fprintf(&cfg, "  url: %q\n", a.BackendURL)
	} else {
		cfg.WriteString("  url: \"${BOTFY_API_URL}\"\n")
	}
	cfg.WriteString("  timeout: \"15s\"\n")
	cfg.WriteString("  upload_timeout: \"60s\"\n\n")

	cfg.WriteString("session:\n")
	fmt.Fprintf(&cfg, "  secret: %q\n", a.SessionSecret)
	cfg.WriteString("  max_age: \"168h\"\n")
	cfg.WriteString("  cleanup_interval: \"10m\"\n\n")

	cfg.WriteString("webadmin:\n")
	fmt.Fprintf(&cfg, "  default_locale: %q\n\n", a.DefaultLocale)

	cfg.WriteString("widget:\n")
	fmt.Fprintf(&cfg, "  proxy: %t\n\n", a.WidgetProxy)

	cfg.WriteString("tailscale:\n")
	fmt.Fprintf(&cfg, "  enabled: %t\n", a.Tailscale)
	if a.Tailscale {
		fmt.Fprintf(&cfg, "  hostname: %q\n", a.TSHostname)
		if a.TSAuthKey != "" {
			fmt.Fprintf(&cfg, "  auth_key: %q\n", a.TSAuthKey)
		}
		fmt.Fprintf(&cfg, "  funnel: %t\n", a.TSFunnel)
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	fmt.Fprintf(&cfg, "  level: %q\n", a.LogLevel)
	fmt.Fprintf(&cfg, "  format: %q\n", a.LogFormat)
	return cfg.String()
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("botfy-dashboard configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	secret, err := newSessionSecret()
	if err != nil {
		return err
	}

	a := initAnswers{SessionSecret: secret}

	fmt.Println("\n--- Server ---")
	a.HTTPAddr = prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	a.BackendURL = prompt(reader, "Backend URL (empty reads BOTFY_API_URL)", "")
	a.DefaultLocale = prompt(reader, "Default locale (pt/en/es)", config.DefaultLocale)
	a.WidgetProxy = yes(prompt(reader, "Proxy widget API through the dashboard?", "no"))

	fmt.Println("\n--- Database ---")
	a.DBPath = prompt(reader, "SQLite session database path", filepath.Join(getDataPath(), "dashboard.db"))

	fmt.Println("\n--- Tailscale ---")
	a.Tailscale = yes(prompt(reader, "Enable Tailscale?", "no"))
	if a.Tailscale {
		a.TSHostname = prompt(reader, "Tailscale hostname", "botfy-dashboard")
		a.TSAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging ---")
	a.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, "Log format (text/json)", "text")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// holds the session secret
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(a.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	color.Green("\n  ✓ Config written to %s", outputFile)
	fmt.Println("\nTo start the dashboard:")
	fmt.Println("  botfy-dashboard serve")
	return nil
}

func yes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
