package main

import (
	"fmt"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
)

type GlobalFlags struct {
	LogLevel string
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "logindex",
	Short: "Build and inspect log indexes",
	Long: `logindex builds a log index, a merkle tree committing to every log of a
chain along with filter maps for searching them, from a feed of blocks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.New(globalFlags.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.OnExit()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "INFO", "log level: DEBUG|INFO|NOOP")
	rootCmd.AddCommand(replayCmd)
}
