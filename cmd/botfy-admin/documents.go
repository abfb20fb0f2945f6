// ABOUTME: documents and teams command trees
// ABOUTME: Uploads go into the agent's namespace, reserving one first when the agent has none

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

func (a *app) documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage the knowledge base",
	}
	cmd.AddCommand(a.documentsListCmd())
	cmd.AddCommand(a.documentsUploadCmd())
	cmd.AddCommand(a.documentsDeleteCmd())
	return cmd
}

func (a *app) documentsListCmd() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents, optionally only one agent's",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				docs, err := c.ListDocuments(ctx, creds)
				if err != nil {
					return err
				}
				if agentID != "" {
					ag, err := c.GetAgent(ctx, creds, agentID)
					if err != nil {
						return err
					}
					docs = backend.DocumentsInNamespace(docs, ag.Namespace())
				}

				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintln(out, "No documents.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "  ID\tNAME\tNAMESPACE\tSIZE (MB)\tSTATUS")
				fmt.Fprintln(w, "  --\t----\t---------\t---------\t------")
				for i := range docs {
					d := &docs[i]
					fmt.Fprintf(w, "  %s\t%s\t%s\t%.2f\t%s\n", d.ID, truncate(d.DisplayName(), 32), d.EmbeddingNamespace, d.FileSizeMB, d.Status)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "only documents in this agent's namespace")
	return cmd
}

func (a *app) documentsUploadCmd() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				var namespace string
				if agentID != "" {
					ag, err := c.GetAgent(ctx, creds, agentID)
					if err != nil {
						return err
					}
					if namespace, err = c.EnsureAgentNamespace(ctx, creds, ag); err != nil {
						return err
					}
				}
				doc, err := c.UploadDocument(ctx, creds, filepath.Base(args[0]), f, namespace)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Uploaded %s (%s)", doc.DisplayName(), doc.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "agent whose knowledge base receives the file")
	return cmd
}

func (a *app) documentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				if err := c.DeleteDocument(ctx, creds, args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Deleted document %s", args[0])
				return nil
			})
		},
	}
}

func (a *app) teamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage agent teams",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List teams",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				teams, err := c.ListTeams(ctx, creds)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(teams) == 0 {
					fmt.Fprintln(out, "No teams.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "  ID\tNAME\tAGENTS\tLEADER")
				fmt.Fprintln(w, "  --\t----\t------\t------")
				for _, t := range teams {
					leader := t.Settings.LeaderAgentID
					if leader == "" {
						leader = "-"
					}
					fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", t.ID, truncate(t.Name, 24), t.AgentsCount, leader)
				}
				return w.Flush()
			})
		},
	})

	var in backend.TeamInput
	var leader string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.TrimSpace(in.Name)
			if in.Name == "" {
				return errors.New("--name is required")
			}
			if leader != "" {
				in.Settings = &backend.TeamSettings{LeaderAgentID: leader}
			}
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				t, err := c.CreateTeam(ctx, creds, in)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Created team %s (%s)", t.Name, t.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "team name")
	create.Flags().StringVar(&in.Description, "description", "", "team description")
	create.Flags().StringVar(&leader, "leader", "", "leader agent id")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <team-id>",
		Short: "Delete a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, func(ctx context.Context, c *backend.Client, creds backend.Credentials) error {
				if err := c.DeleteTeam(ctx, creds, args[0]); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Deleted team %s", args[0])
				return nil
			})
		},
	})

	return cmd
}
