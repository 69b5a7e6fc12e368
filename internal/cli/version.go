package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secondarymetabolites/crispy-service/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the service version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crispy-service %s (api %s)\n", version.Version, version.API)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
