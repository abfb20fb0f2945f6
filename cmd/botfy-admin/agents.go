// ABOUTME: agents command tree: list, create, toggle, delete, prompt and chat
// ABOUTME: chat sends one message or runs a REPL when no message is given

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the tenant's agents",
	}
	cmd.AddCommand(a.agentsListCmd())
	cmd.AddCommand(a.agentsCreateCmd())
	cmd.AddCommand(a.agentsToggleCmd())
	cmd.AddCommand(a.agentsDeleteCmd())
	cmd.AddCommand(a.agentsPromptCmd())
	cmd.AddCommand(a.agentsChatCmd())
	return cmd
}

func (a *app) agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				agents, err := c.ListAgents(ctx, creds)
				if err != nil {
					return err
				}
				printAgents(cmd.OutOrStdout(), agents)
				return nil
			})
		},
	}
}

func printAgents(out io.Writer, agents []backend.Agent) {
	if len(agents) == 0 {
		fmt.Fprintln(out, "No agents yet. Create one with: botfy-admin agents create --name NAME")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tNICHE\tSTATUS\tTEAM")
	fmt.Fprintln(w, "  --\t----\t-----\t------\t----")
	for _, ag := range agents {
		status := "inactive"
		if ag.Active {
			status = "active"
		}
		team := ag.TeamID
		if team == "" {
			team = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", ag.ID, truncate(ag.Name, 24), truncate(ag.Niche, 20), status, team)
	}
	_ = w.Flush()
}

func (a *app) agentsCreateCmd() *cobra.Command {
	var in backend.AgentCreate

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.TrimSpace(in.Name)
			if in.Name == "" {
				return errors.New("--name is required")
			}
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				ag, err := c.CreateAgent(ctx, creds, in)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Created agent %s (%s)", ag.Name, ag.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "agent name")
	cmd.Flags().StringVar(&in.Niche, "niche", "", "business niche")
	cmd.Flags().StringVar(&in.PromptCustom, "prompt", "", "custom system prompt")
	return cmd
}

func (a *app) agentsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <agent-id>",
		Short: "Activate or deactivate an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				current, err := c.GetAgent(ctx, creds, args[0])
				if err != nil {
					return err
				}
				ag, err := c.SetAgentActive(ctx, creds, current.ID, !current.Active)
				if err != nil {
					return err
				}
				state := "deactivated"
				if ag.Active {
					state = "activated"
				}
				ok(cmd.OutOrStdout(), "Agent %s %s", ag.Name, state)
				return nil
			})
		},
	}
}

func (a *app) agentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				if err := c.DeleteAgent(ctx, creds, args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Deleted agent %s", args[0])
				return nil
			})
		},
	}
}

func (a *app) agentsPromptCmd() *cobra.Command {
	var brief backend.PromptBrief

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Draft a system prompt from a short brief",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(brief.Context) == "" {
				return errors.New("--context is required")
			}
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				prompt, err := c.GeneratePrompt(ctx, creds, brief)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prompt)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&brief.Context, "context", "", "what the business does")
	cmd.Flags().StringVar(&brief.Audience, "audience", "", "who the agent talks to")
	cmd.Flags().StringVar(&brief.Tone, "tone", "", "voice, e.g. friendly")
	cmd.Flags().StringVar(&brief.Goal, "goal", "", "what a good conversation ends with")
	return cmd
}

func (a *app) agentsChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <agent-id> [message]",
		Short: "Test an agent (REPL if no message)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID := args[0]
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				if len(args) > 1 {
					reply, err := c.ChatWithAgent(ctx, creds, agentID, strings.Join(args[1:], " "))
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), reply)
					return nil
				}
				return chatREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), func(msg string) (string, error) {
					return c.ChatWithAgent(ctx, creds, agentID, msg)
				})
			})
		},
	}
}

// chatREPL reads one message per line until EOF. Backend errors are printed
// and the loop continues, except a 401 which ends it.
func chatREPL(ctx context.Context, in io.Reader, out io.Writer, send func(string) (string, error)) error {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	cyan.Fprintln(out, "Chat started (Ctrl+D to exit)")
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024)
	for {
		green.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := send(line)
		if err != nil {
			if backend.IsUnauthorized(err) || ctx.Err() != nil {
				return err
			}
			color.New(color.FgRed).Fprintf(out, "! %s\n", backend.Message(err))
			continue
		}
		fmt.Fprintln(out, reply)
	}
}
