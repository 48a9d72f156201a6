package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/output"
	"github.com/glidepath/glidepath/internal/server"
)

var (
	statusInfra bool
	statusApp   bool
	statusAll   bool
	statusServe string
)

var statusCmd = &cobra.Command{
	Use:   "status <environment>",
	Short: "Show the current state of an environment's resources",
	Long: `Show the current state of an environment's resources.

Every state is read live from the cloud; nothing is cached or mutated.
With --serve, the same readings are exposed over HTTP as JSON until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: statusRun,
}

func init() {
	statusCmd.Flags().BoolVar(&statusInfra, "infra", false, "Only the infra stage")
	statusCmd.Flags().BoolVar(&statusApp, "app", false, "Only the app stage")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "Both stages (the default)")
	statusCmd.Flags().StringVar(&statusServe, "serve", "", "Serve status as JSON on this address (e.g. :8080)")
	rootCmd.AddCommand(statusCmd)
}

func statusStages() []graph.Stage {
	switch {
	case statusAll:
	case statusInfra && !statusApp:
		return []graph.Stage{graph.StageInfra}
	case statusApp && !statusInfra:
		return []graph.Stage{graph.StageApp}
	}
	return []graph.Stage{graph.StageInfra, graph.StageApp}
}

func statusRun(cmd *cobra.Command, args []string) error {
	envName := args[0]
	env, err := environmentFromArgs(envName)
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), env)
	if err != nil {
		return err
	}
	defer s.close()

	stages := statusStages()

	if statusServe != "" {
		router := server.NewRouter(envName, s.executor, stages, slog.Default())
		return server.Serve(cmd.Context(), statusServe, router, slog.Default())
	}

	health := s.executor.Health(cmd.Context(), stages...)
	output.Subheader("Resources in " + envName)
	var lines []nodeLine
	for _, h := range health {
		lines = append(lines, nodeLine{ID: h.ID, State: h.State, Detail: h.Detail})
	}
	printNodeResults(lines)
	return nil
}
