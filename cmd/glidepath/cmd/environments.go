package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/glidepath/glidepath/internal/output"
)

var environmentsCmd = &cobra.Command{
	Use:   "environments",
	Short: "List the configured environments",
	Run: func(_ *cobra.Command, _ []string) {
		for _, name := range cfg.EnvironmentNames() {
			env := cfg.Environments[name]
			title := name
			if env.Production {
				title += " (production)"
			}
			output.Subheader(title)
			output.KeyValue("Project", env.Project)
			output.KeyValue("Location", fmt.Sprintf("%s (%s)", env.Location(), env.Topology))
			output.KeyValue("Machine type", env.MachineType)
			output.KeyValue("Nodes", strconv.Itoa(env.NodeCount))
			output.KeyValue("Network CIDR", env.NetworkCIDR)
			if env.Domain != "" {
				output.KeyValue("Domain", env.Domain)
			}
			output.KeyValue("Replicas", strconv.Itoa(env.Sizing.Replicas))
		}
	},
}

func init() {
	rootCmd.AddCommand(environmentsCmd)
}
