package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newLenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "len",
		Short: "Print the number of queued messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(store queueStore) error {
				count, err := store.Len(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !isTerminal(out) {
					fmt.Fprintln(out, count)
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Queue", "Driver", "Pending"},
					[][]string{{store.Name(), ctx.config.Driver, strconv.Itoa(count)}},
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
