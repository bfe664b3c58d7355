package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the queue table and its ordering index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(store queueStore) error {
				if err := store.Initialize(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s initialized (%s)\n", store.Name(), ctx.config.Driver)
				return nil
			})
		},
	}
}
