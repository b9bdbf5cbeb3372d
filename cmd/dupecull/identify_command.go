package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dupecull/internal/dedup"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "identify <path ...>",
		Short:       "Print the canonical identifier for each path",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, errs := dedup.Identify(args)
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			for _, err := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d path(s) could not be canonicalized", len(errs))
			}
			return nil
		},
	}
}
