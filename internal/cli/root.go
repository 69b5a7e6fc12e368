// Package cli defines the cobra commands of the crispy-service binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/secondarymetabolites/crispy-service/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "crispy-service",
	Short: "CRISPR gRNA session service",
	Long: `crispy-service runs the CRISPy web API: it manages genome analysis
sessions, hands scan jobs to the worker pool and serves the resulting
gRNA candidates.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
