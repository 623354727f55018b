// Package cli implements the changectl command-line interface.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/change-analysis-service/pkg/config"
	"github.com/user/change-analysis-service/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// NewRootCommand builds the changectl command tree.
func NewRootCommand() *cobra.Command {
	var envFile string
	var debug bool

	root := &cobra.Command{
		Use:           "changectl",
		Short:         "Compare two captures of a web page and score the change",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			logger.Init(cmd.ErrOrStderr(), level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file with engine settings")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.LoadFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newAnalyzeCommand(loadConfig),
		newCaptureCommand(loadConfig),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "changectl version %s\n", Version)
			},
		},
	)
	return root
}
