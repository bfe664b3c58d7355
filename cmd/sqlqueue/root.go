package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "sqlqueue",
		Short:         "Durable FIFO queues on PostgreSQL, MySQL and SQLite tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path (TOML)")
	pf.StringVar(&flags.driver, "driver", "", "Storage driver: postgres, mysql or sqlite")
	pf.StringVar(&flags.dsn, "dsn", "", "Connection URL, MySQL DSN or SQLite path for the selected driver")
	pf.StringVarP(&flags.queue, "queue", "q", "", "Queue name (table or schema.table)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newEnqueueCommand(ctx))
	rootCmd.AddCommand(newDequeueCommand(ctx))
	rootCmd.AddCommand(newLenCommand(ctx))
	rootCmd.AddCommand(newConsumeCommand(ctx))
	rootCmd.AddCommand(newBenchCommand(ctx))

	return rootCmd
}
