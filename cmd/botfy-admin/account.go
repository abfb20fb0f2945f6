// ABOUTME: Account commands: login, logout, me and usage
// ABOUTME: login stores the token file and the tenant id reported by /auth/me

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		Long: `Sign in with email and password. The password is read from --password,
BOTFY_PASSWORD, or prompted without echo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.apiURL == "" {
				return errors.New("no API URL: pass --api-url or set BOTFY_API_URL")
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				email = a.profile.Email
			}
			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Email: ")
				email = readLine(in)
			}
			if password == "" {
				password = os.Getenv("BOTFY_PASSWORD")
			}
			if password == "" {
				var err error
				password, err = readPassword(cmd, in)
				if err != nil {
					return err
				}
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			c := a.client()
			pair, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return a.check(err)
			}
			me, err := c.Me(cmd.Context(), backend.Credentials{Token: pair.AccessToken})
			if err != nil {
				return a.check(err)
			}

			if err := saveToken(pair.AccessToken); err != nil {
				return err
			}
			a.profile.APIURL = a.apiURL
			a.profile.TenantID = me.TenantID
			a.profile.Email = email
			if err := a.profile.save(profilePath()); err != nil {
				return err
			}

			ok(cmd.OutOrStdout(), "Logged in as %s (tenant %s, plan %s)", email, me.TenantID, backend.LookupPlan(me.Plan).Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	if f, isFile := cmd.InOrStdin().(*os.File); isFile && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in), nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds, err := a.creds(); err == nil {
				// the token is dropped locally even if the backend is unreachable
				_ = a.client().Logout(cmd.Context(), creds)
			}
			if err := clearToken(); err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user and tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				me, err := c.Me(ctx, creds)
				if err != nil {
					return err
				}
				if creds.TenantID == "" {
					creds.TenantID = me.TenantID
				}
				tenant, err := c.Tenant(ctx, creds)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				cyan := color.New(color.FgCyan)
				cyan.Fprintln(out, "Identity")
				cyan.Fprintln(out, "--------")
				fmt.Fprintf(out, "  Email:    %s\n", me.Email)
				fmt.Fprintf(out, "  User ID:  %s\n", me.UserID)
				fmt.Fprintf(out, "  Tenant:   %s (%s)\n", tenant.DisplayName(), me.TenantID)
				fmt.Fprintf(out, "  Plan:     %s\n", backend.LookupPlan(me.Plan).Name)
				fmt.Fprintf(out, "  API:      %s\n", c.BaseURL())
				return nil
			})
		},
	}
}

func limitText(limit float64, format string) string {
	if limit <= 0 {
		return "∞"
	}
	return fmt.Sprintf(format, limit)
}

func (a *app) usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show this month's usage against the plan limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				u, err := c.Usage(ctx, creds)
				if err != nil {
					return err
				}
				printUsage(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
}

func printUsage(out io.Writer, u *backend.Usage) {
	if u.YearMonth != "" {
		fmt.Fprintf(out, "Usage for %s (%s)\n\n", u.YearMonth, backend.LookupPlan(u.Plan).Name)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RESOURCE\tUSED\tLIMIT\t%")
	fmt.Fprintln(w, "  --------\t----\t-----\t-")
	rows := []struct {
		name        string
		used, limit float64
		format      string
	}{
		{"messages", float64(u.MessagesUsed), float64(u.MessagesLimit), "%.0f"},
		{"tokens", float64(u.TokensUsed), float64(u.TokensLimit), "%.0f"},
		{"storage (MB)", u.StorageMB, u.StorageLimitMB, "%.1f"},
		{"documents", float64(u.DocumentsCount), float64(u.DocumentsLimit), "%.0f"},
		{"agents", float64(u.AgentsCount), float64(u.AgentsLimit), "%.0f"},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\t"+r.format+"\t%s\t%d\n", r.name, r.used, limitText(r.limit, r.format), backend.Percent(r.used, r.limit))
	}
	_ = w.Flush()
}
