package main

import (
	"context"

	"github.com/spf13/cobra"

	"dupecull/internal/dedup"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [path ...]",
		Short: "Fingerprint images and archives into the store",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}
			return ctx.withPipeline(func(runCtx context.Context, pipeline *dedup.Pipeline) error {
				report, err := pipeline.Scan(runCtx, roots)
				if report != nil {
					printScanSummary(cmd.OutOrStdout(), report)
					printReportTail(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}
