package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dupecull/internal/config"
	"dupecull/internal/fingerprint"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *fingerprint.Store) error {
				stats, err := store.Statistics(context.Background())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Database", cfg.Paths.DatabasePath},
					{"Total records", strconv.FormatInt(stats.TotalRecords, 10)},
					{"Archive entries", strconv.FormatInt(stats.ArchiveRows, 10)},
					{"Plain files", strconv.FormatInt(stats.PlainRows, 10)},
					{"Database size", fmt.Sprintf("%d bytes", stats.DBSizeBytes)},
				}
				for format, count := range stats.ByFormat {
					if format == "" {
						format = "(none)"
					}
					rows = append(rows, []string{"Format " + format, strconv.FormatInt(count, 10)})
				}
				for archive, count := range stats.ByArchive {
					rows = append(rows, []string{"Archive " + archive, strconv.FormatInt(count, 10)})
				}

				if interactiveOutput(out) {
					fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows,
						[]columnAlignment{alignLeft, alignRight}))
					return nil
				}
				for _, row := range rows {
					fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
				}
				return nil
			})
		},
	}
}
