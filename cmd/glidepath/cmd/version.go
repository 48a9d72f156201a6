package cmd

import (
	"github.com/spf13/cobra"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the CLI",
	Run: func(_ *cobra.Command, _ []string) {
		output.KeyValue("CLI version", *constants.GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
