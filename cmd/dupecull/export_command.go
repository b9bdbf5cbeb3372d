package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dupecull/internal/config"
	"dupecull/internal/fingerprint"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the fingerprint store as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *fingerprint.Store) error {
				target := strings.TrimSpace(outputPath)
				if target == "" {
					return store.ExportJSON(context.Background(), cmd.OutOrStdout())
				}
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer file.Close()
				if err := store.ExportJSON(context.Background(), file); err != nil {
					return err
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("finalize export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported fingerprints to %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write JSON to a file instead of stdout")
	return cmd
}
