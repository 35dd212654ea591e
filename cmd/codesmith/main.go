// codesmith is a sandboxed coding agent: it lets an LLM modify files in
// a working directory through a fixed capability set, with confirmation
// before every mutation, an auditable undo log, and resumable task
// state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codesmith/internal/config"
	"codesmith/internal/logging"
)

var (
	flagDir     string
	flagConfig  string
	flagVerbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "codesmith",
	Short:         "LLM coding agent with confirmation, undo, and resumable tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		logger, err = logging.NewLogger(flagVerbose)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		logging.Initialize(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".", "working directory the task is confined to")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.codesmith/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newSearchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
