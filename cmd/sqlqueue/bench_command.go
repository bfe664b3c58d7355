package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/velmie/sqlqueue"
)

func newBenchCommand(ctx *commandContext) *cobra.Command {
	var (
		mode    string
		cfg     benchConfig
		asJSON  bool
		queueID string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure enqueue and dequeue throughput against the configured backend",
		Long: "Produce and consume numbered messages and verify that every message is delivered exactly once. " +
			"The queue must be empty when the run starts and is left empty afterwards.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseMode(mode)
			if err != nil {
				return err
			}
			cfg.mode = parsed

			name := queueID
			if !cmd.Flags().Changed("bench-queue") && ctx.flags.queue != "" {
				name = ctx.config.Queue
			}

			return ctx.withNamedQueue(cmd, name, func(store queueStore) error {
				b := newBench(cfg, store, sqlqueue.NewSlogLogger(ctx.logger))
				res, err := b.run(cmd.Context())
				if err != nil {
					return err
				}
				res.Driver = ctx.config.Driver

				return writeBenchResult(cmd.OutOrStdout(), res, asJSON)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", string(modeMixed), "Benchmark mode: enqueue, consume or mixed")
	flags.StringVar(&queueID, "bench-queue", defaultBenchQueue, "Queue used for the run when --queue is not set")
	flags.IntVar(&cfg.records, "records", defaultBenchRecords, "Messages to produce")
	flags.IntVar(&cfg.producers, "producers", defaultBenchProducers, "Concurrent producers")
	flags.IntVar(&cfg.consumers, "consumers", defaultBenchConsumers, "Concurrent poller workers")
	flags.IntVar(&cfg.payloadBytes, "payload-bytes", defaultPayloadBytes, "Payload size in bytes (at least 16)")
	flags.DurationVar(&cfg.drainTimeout, "drain-timeout", defaultDrainTimeout, "Maximum time to wait for consumers to drain the queue")
	flags.BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func writeBenchResult(w io.Writer, res benchResult, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(res)
	}

	rows := [][]string{
		{"Mode", string(res.Mode)},
		{"Driver", res.Driver},
		{"Queue", res.Queue},
		{"Records", strconv.Itoa(res.Records)},
		{"Producers / consumers", fmt.Sprintf("%d / %d", res.Producers, res.Consumers)},
		{"Payload bytes", strconv.Itoa(res.PayloadBytes)},
		{"Produced / consumed", fmt.Sprintf("%d / %d", res.Produced, res.Consumed)},
		{"Duplicates", strconv.FormatInt(res.Duplicates, 10)},
		{"Handler failures", strconv.FormatInt(res.HandlerFailures, 10)},
		{"Duration", res.Duration.Round(time.Millisecond).String()},
		{"Throughput", fmt.Sprintf("%.1f msg/s", res.Throughput)},
		{"Dequeue p50 / p95 / p99", formatMs(res.DequeueP50Ms, res.DequeueP95Ms, res.DequeueP99Ms)},
		{"Dequeue max", formatMs(res.DequeueMaxMs)},
	}
	if res.LatencySamples > 0 {
		rows = append(rows,
			[]string{"Latency p50 / p95 / p99", formatMs(res.LatencyP50Ms, res.LatencyP95Ms, res.LatencyP99Ms)},
			[]string{"Latency max", formatMs(res.LatencyMaxMs)},
		)
	}

	_, err := fmt.Fprintln(w, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	return err
}

func formatMs(values ...float64) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += " / "
		}
		out += strconv.FormatFloat(v, 'f', 2, 64)
	}
	return out + " ms"
}
