package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue [payload...]",
		Short: "Append messages to the queue",
		Long:  "Append each argument as a separate message. Without arguments the whole of stdin is enqueued as one message.",
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads, err := enqueuePayloads(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return ctx.withQueue(cmd, func(store queueStore) error {
				for _, payload := range payloads {
					if err := store.Enqueue(cmd.Context(), payload); err != nil {
						return err
					}
				}
				ctx.logger.Debug("enqueued messages", "queue", store.Name(), "count", len(payloads))
				return nil
			})
		},
	}
}

func enqueuePayloads(stdin io.Reader, args []string) ([][]byte, error) {
	if len(args) == 0 {
		payload, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return [][]byte{payload}, nil
	}

	payloads := make([][]byte, 0, len(args))
	for _, arg := range args {
		payloads = append(payloads, []byte(arg))
	}
	return payloads, nil
}
