package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/velmie/sqlqueue"
)

var errQueueEmpty = errors.New("queue is empty")

func newDequeueCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "dequeue",
		Short: "Remove the oldest message and print it",
		Long: "Remove the oldest message and print its payload. Raw bytes are written when stdout is not a terminal. " +
			"Exits with status 3 when the queue is empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(store queueStore) error {
				envelope, ok, err := store.Dequeue(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Queue is empty")
					return errQueueEmpty
				}

				out := cmd.OutOrStdout()
				if verbose || isTerminal(out) {
					fmt.Fprintln(out, renderEnvelope(envelope))
					return nil
				}
				_, err = out.Write(envelope.Payload)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print id, insertion time and quoted payload")

	return cmd
}

func renderEnvelope(envelope sqlqueue.Envelope) string {
	rows := [][]string{{
		envelope.ID.String(),
		envelope.InsertedAt.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(len(envelope.Payload)),
		strconv.Quote(string(envelope.Payload)),
	}}
	return renderTable(
		[]string{"ID", "Inserted", "Bytes", "Payload"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
