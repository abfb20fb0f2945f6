// ABOUTME: channels status and the widget snippet generator
// ABOUTME: The snippet uses the profile tenant unless --tenant is given

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

func (a *app) channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show WhatsApp and Telegram connection status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				wa, err := c.WhatsAppStatus(ctx, creds)
				if err != nil {
					return err
				}
				tg, err := c.TelegramStatus(ctx, creds)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "WhatsApp  %s", connectedText(wa.Connected))
				if wa.Connected {
					fmt.Fprintf(out, "  via %s", wa.ConnectionType)
					if wa.PhoneNumberIDMask != "" {
						fmt.Fprintf(out, "  phone %s", wa.PhoneNumberIDMask)
					}
					fmt.Fprintf(out, "  agent %s", orDash(wa.AgentID))
				}
				fmt.Fprintln(out)

				fmt.Fprintf(out, "Telegram  %s", connectedText(tg.Connected))
				if tg.Connected {
					fmt.Fprintf(out, "  @%s  agent %s", tg.BotUsername, orDash(tg.AgentID))
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func connectedText(connected bool) string {
	if connected {
		return color.GreenString("connected")
	}
	return color.HiBlackString("not connected")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *app) widgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Website chat widget helpers",
	}

	var opts widget.Options
	snippet := &cobra.Command{
		Use:   "snippet",
		Short: "Print the <script> tag for an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TenantID = a.tenantID
			if opts.TenantID == "" {
				return errors.New("no tenant: run botfy-admin login or pass --tenant")
			}
			if opts.ScriptURL == "" && a.apiURL != "" {
				opts.ScriptURL = strings.TrimSuffix(strings.TrimRight(a.apiURL, "/"), "/api") + "/widget.js"
			}
			s, err := widget.Snippet(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	snippet.Flags().StringVar(&opts.AgentID, "agent", "", "agent id")
	snippet.Flags().StringVar(&opts.Color, "color", widget.DefaultColor, "button color (#RGB or #RRGGBB)")
	snippet.Flags().StringVar(&opts.Position, "position", widget.DefaultPosition, "left or right")
	snippet.Flags().StringVar(&opts.ScriptURL, "script-url", "", "where widget.js is served (default: <api-url>/widget.js)")
	snippet.Flags().StringVar(&opts.APIURL, "widget-api-url", "", "data-api-url for the widget")
	cmd.AddCommand(snippet)

	return cmd
}
