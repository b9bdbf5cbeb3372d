package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dupecull/internal/dedup"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "groups [path ...]",
		Short: "Show near-duplicate groups and the decisions that would be made",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}
			return ctx.withPipeline(func(runCtx context.Context, pipeline *dedup.Pipeline) error {
				report, err := pipeline.Cull(runCtx, roots, true)
				if report != nil {
					printGroups(cmd.OutOrStdout(), report)
					printReportTail(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}

func newCullCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cull [path ...]",
		Short: "Remove near-duplicates, backing every removal up to trash",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}
			return ctx.withPipeline(func(runCtx context.Context, pipeline *dedup.Pipeline) error {
				report, err := pipeline.Cull(runCtx, roots, dryRun)
				if report != nil {
					printGroups(cmd.OutOrStdout(), report)
					printReportTail(cmd.OutOrStdout(), report)
					if !dryRun {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", report.Removed)
					}
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Decide removals without touching any file")
	return cmd
}
