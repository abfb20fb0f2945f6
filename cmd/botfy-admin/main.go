// ABOUTME: Operator CLI for the Botfy backend: sign in, inspect the tenant, manage agents and documents
// ABOUTME: Talks to the REST API through the same client the dashboard uses

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

var errNotLoggedIn = errors.New("not logged in: run botfy-admin login")

// app carries global flags and the loaded profile into every command.
type app struct {
	apiURL   string
	tenantID string
	timeout  time.Duration

	profile *Profile
	token   string
}

func main() {
	_ = godotenv.Load()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "botfy-admin",
		Short: "Manage a Botfy tenant from the terminal",
		Long: `botfy-admin signs in to the Botfy API and manages the tenant's agents,
knowledge base, teams and channels.

The API URL and tenant are kept in $XDG_CONFIG_HOME/botfy/cli.toml and the
bearer token in $XDG_CONFIG_HOME/botfy/token (BOTFY_TOKEN overrides it).

Examples:
  botfy-admin login --email ana@acme.com
  botfy-admin agents list
  botfy-admin documents upload faq.pdf --agent 7c1d...
  botfy-admin widget snippet --agent 7c1d...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "backend URL (default: profile api_url, then BOTFY_API_URL)")
	root.PersistentFlags().StringVar(&a.tenantID, "tenant", "", "tenant id (default: profile tenant_id)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", backend.DefaultTimeout, "request timeout")

	root.AddCommand(a.loginCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.meCmd())
	root.AddCommand(a.usageCmd())
	root.AddCommand(a.agentsCmd())
	root.AddCommand(a.documentsCmd())
	root.AddCommand(a.teamsCmd())
	root.AddCommand(a.channelsCmd())
	root.AddCommand(a.widgetCmd())

	return root
}

func (a *app) load() error {
	p, err := loadProfile(profilePath())
	if err != nil {
		return err
	}
	a.profile = p
	a.token = loadToken()

	if a.apiURL == "" {
		a.apiURL = p.APIURL
	}
	if a.apiURL == "" {
		a.apiURL = os.Getenv("BOTFY_API_URL")
	}
	if a.tenantID == "" {
		a.tenantID = p.TenantID
	}
	return nil
}

func (a *app) client() *backend.Client {
	return backend.New(backend.Options{
		BaseURL: a.apiURL,
		Timeout: a.timeout,
	})
}

// creds returns the signed-in credentials or errNotLoggedIn.
func (a *app) creds() (backend.Credentials, error) {
	if a.token == "" {
		return backend.Credentials{}, errNotLoggedIn
	}
	return backend.Credentials{Token: a.token, TenantID: a.tenantID}, nil
}

// check turns a backend 401 into a sign-in hint and forgets the stale token.
func (a *app) check(err error) error {
	if err == nil {
		return nil
	}
	if backend.IsUnauthorized(err) {
		if os.Getenv("BOTFY_TOKEN") == "" {
			_ = clearToken()
		}
		return fmt.Errorf("session expired: run botfy-admin login (%s)", backend.Message(err))
	}
	return errors.New(backend.Message(err))
}

// call runs fn with fresh credentials and the command context.
func (a *app) call(cmd *cobra.Command, fn func(ctx context.Context, c *backend.Client, creds backend.Credentials) error) error {
	creds, err := a.creds()
	if err != nil {
		return err
	}
	return a.check(fn(cmd.Context(), a.client(), creds))
}

func ok(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}
