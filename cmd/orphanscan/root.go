package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for orphanscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphanscan",
		Short: "Detect orphan lines in rendered page sections",
		Long: `orphanscan renders a page in headless Chrome at each configured viewport and
reconstructs the visual lines of selected text blocks from per-character
geometry. A block whose last line has only a few characters (an orphan) is
reported so the copy or markup can be adjusted.

The page, viewports and selectors come from the .orphanscan configuration
file; run 'orphanscan init' to create one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
