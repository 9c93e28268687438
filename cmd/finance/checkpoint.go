package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/storage"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage ledger checkpoints",
		Long: `Create, list, restore, and delete ledger checkpoints.

Checkpoints save the current records before risky changes so they can be
put back later. They work the same for every store backend.`,
		Example: `  # Create a checkpoint before a big cleanup
  finance checkpoint create --tag before-cleanup

  # List all checkpoints
  finance checkpoint list

  # Restore from a checkpoint
  finance checkpoint restore before-cleanup`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())

	return cmd
}

// withCheckpoints runs fn with the checkpoint manager of a logged-in user.
func withCheckpoints(cmd *cobra.Command, fn func(ctx context.Context, manager *storage.CheckpointManager) error) error {
	return withSession(cmd, func(ctx context.Context, env *environment, _ *app.State) error {
		manager, err := env.checkpoints()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		return fn(ctx, manager)
	})
}

func createCheckpointCmd() *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				info, err := manager.Create(ctx, tag, description)
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Created checkpoint %s (%d records, %s)\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(info.ID),
					info.Records,
					formatFileSize(info.FileSize))
				if info.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", info.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "checkpoint name (generated when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the checkpoint")

	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				out := cmd.OutOrStdout()
				checkpoints, err := manager.List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list checkpoints: %w", err)
				}
				if len(checkpoints) == 0 {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("No checkpoints found."))
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
				fmt.Fprintln(w, strings.Join([]string{
					headerStyle.Render("NAME"),
					headerStyle.Render("CREATED"),
					headerStyle.Render("SIZE"),
					headerStyle.Render("RECORDS"),
					headerStyle.Render("TYPE"),
				}, "\t"))

				for _, cp := range checkpoints {
					typeLabel := "manual"
					if cp.IsAuto {
						typeLabel = "auto"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						cli.InfoStyle.Render(cp.ID),
						formatRelativeTime(cp.CreatedAt, time.Now()),
						formatFileSize(cp.FileSize),
						cp.Records,
						cli.SubtitleStyle.Render(typeLabel))
				}
				return w.Flush()
			})
		},
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Replace the ledger with a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				out := cmd.OutOrStdout()
				info, err := findCheckpoint(ctx, manager, id)
				if err != nil {
					return err
				}

				if !force {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("This will replace all current records with checkpoint %s.", id)))
					fmt.Fprintf(out, "  Created: %s\n  Records: %d\n", info.CreatedAt.Local().Format("2006-01-02 15:04:05"), info.Records)
					if info.Description != "" {
						fmt.Fprintf(out, "  Description: %s\n", info.Description)
					}
					ok, err := prompter(cmd).Confirm(ctx, "Continue?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.SubtitleStyle.Render("Restore cancelled."))
						return nil
					}
				}

				if err := manager.Restore(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s Restored from checkpoint %s\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(id))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				out := cmd.OutOrStdout()
				info, err := findCheckpoint(ctx, manager, id)
				if err != nil {
					return err
				}

				if !force {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("This will permanently delete checkpoint %s.", id)))
					fmt.Fprintf(out, "  Created: %s\n  Size: %s\n", info.CreatedAt.Local().Format("2006-01-02 15:04:05"), formatFileSize(info.FileSize))
					ok, err := prompter(cmd).Confirm(ctx, "Continue?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.SubtitleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := manager.Delete(ctx, id); err != nil {
					return fmt.Errorf("failed to delete checkpoint: %w", err)
				}
				fmt.Fprintf(out, "%s Deleted checkpoint %s\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(id))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

func findCheckpoint(ctx context.Context, manager *storage.CheckpointManager, id string) (*storage.CheckpointInfo, error) {
	checkpoints, err := manager.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	for i := range checkpoints {
		if checkpoints[i].ID == id {
			return &checkpoints[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrCheckpointNotFound, id)
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
