// Command tcpseg decodes, builds and checks TCP segments.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/soypat/lnlayer/internal"
	"github.com/spf13/cobra"
)

// Cmd holds the flags shared by all subcommands.
type Cmd struct {
	// Verbose enables trace logging.
	Verbose bool
}

var (
	cmd    Cmd
	logger = internal.NewLogger(os.Stderr, slog.LevelInfo)
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tcpseg",
		Short:         "Decode, build and verify TCP segments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if cmd.Verbose {
				level = internal.LevelTrace
			}
			logger = internal.NewLogger(c.ErrOrStderr(), level)
		},
	}
	root.PersistentFlags().BoolVarP(&cmd.Verbose, "verbose", "v", false, "Enable trace logging")
	root.AddCommand(newDecodeCmd(), newBuildCmd(), newPcapCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
