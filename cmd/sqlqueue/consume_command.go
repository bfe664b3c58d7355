package main

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/velmie/sqlqueue"
)

func newConsumeCommand(ctx *commandContext) *cobra.Command {
	var (
		workers      int
		pollInterval time.Duration
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Dequeue messages continuously and print one payload per line",
		Long: "Run a poller against the queue and print each payload followed by a newline. " +
			"Stops on interrupt, on a store error or after --max messages.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config.Poller
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("poll-interval") {
				cfg.PollInterval = pollInterval
			}
			// a second worker could claim a message after the limit is reached
			if limit > 0 {
				cfg.Workers = 1
			}

			return ctx.withQueue(cmd, func(store queueStore) error {
				runCtx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				printer := &linePrinter{w: cmd.OutOrStdout(), limit: limit, done: cancel}
				poller := sqlqueue.NewPoller(store, sqlqueue.HandlerFunc(printer.handle),
					sqlqueue.WithWorkers(cfg.Workers),
					sqlqueue.WithPollInterval(cfg.PollInterval),
					sqlqueue.WithHandlerTimeout(cfg.HandlerTimeout),
					sqlqueue.WithPendingInterval(cfg.PendingInterval),
					sqlqueue.WithLogger(sqlqueue.NewSlogLogger(ctx.logger)),
				)

				err := poller.Run(runCtx)
				ctx.logger.Info("consumer stopped", "queue", store.Name(), "delivered", printer.count())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Concurrent dequeue workers")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 100*time.Millisecond, "Delay after an empty dequeue")
	cmd.Flags().IntVarP(&limit, "max", "n", 0, "Stop after this many messages (0 runs until interrupted)")

	return cmd
}

// linePrinter writes payloads from concurrent workers and stops the run after limit messages.
type linePrinter struct {
	mu        sync.Mutex
	w         io.Writer
	limit     int
	delivered int
	done      context.CancelFunc
}

func (p *linePrinter) handle(_ context.Context, envelope sqlqueue.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && p.delivered >= p.limit {
		return nil
	}
	if _, err := p.w.Write(envelope.Payload); err != nil {
		return err
	}
	if _, err := io.WriteString(p.w, "\n"); err != nil {
		return err
	}
	p.delivered++
	if p.limit > 0 && p.delivered >= p.limit {
		p.done()
	}
	return nil
}

func (p *linePrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}
