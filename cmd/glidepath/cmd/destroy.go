package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/glidepath/glidepath/internal/config"
	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/output"
	"github.com/glidepath/glidepath/internal/run"
	"github.com/glidepath/glidepath/internal/teardown"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <environment> <target>",
	Short: "Destroy an environment's resources in reverse dependency order",
	Long: `Destroy an environment's resources in reverse dependency order.

Targets:
  app    remove the application resources, leaving the cluster intact
  infra  remove the cluster and network; refused while app resources exist
  all    remove everything

Every destroy requires typing a confirmation phrase, with a stricter phrase
for production environments. Destroying stateful resources (the database and
workflow storage) prompts a second time before any data is deleted.
Already-absent resources are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: destroyRun,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func destroyRun(cmd *cobra.Command, args []string) error {
	envName, target := args[0], args[1]

	stages := graph.Stages(target)
	if stages == nil {
		return orcherrors.ErrConfigInvalid(
			fmt.Sprintf("unknown target %q (known: infra, app, all)", target), nil)
	}
	env, err := environmentFromArgs(envName)
	if err != nil {
		return err
	}

	if !confirmDestroy(env, target, output.ConfirmPhrase) {
		output.Info("destroy canceled")
		return nil
	}

	s, err := newSession(cmd.Context(), env)
	if err != nil {
		return err
	}
	defer s.close()

	lock, err := run.AcquireLock(envName)
	if err != nil {
		return err
	}
	defer lock.Release()

	guard := teardown.New(s.registry, s.actuators, output.ConfirmPhrase, slog.Default())
	r := run.New(envName, target, stages)

	destroyErr := guard.Destroy(cmd.Context(), r, env.ConfirmPhrase(), stages...)

	outcome := r.Outcome()
	if outcome == "" {
		outcome = r.Finalize("")
	}
	printRunSummary(r, outcome)

	if destroyErr != nil {
		return destroyErr
	}
	switch outcome {
	case run.OutcomeSuccess, run.OutcomeCanceled:
		return nil
	default:
		return firstNodeError(r)
	}
}

// confirmDestroy gates every destroy invocation, before any session, lock, or
// cloud call. The data-loss gate inside the teardown guard is separate and
// prompts again when stateful resources are actually about to go.
func confirmDestroy(env *config.Environment, target string, confirm teardown.ConfirmFunc) bool {
	message := fmt.Sprintf("About to destroy target %q in environment %q.", target, env.Name)
	if env.Production {
		message = fmt.Sprintf("About to destroy target %q in PRODUCTION environment %q.", target, env.Name)
	}
	return confirm(message, env.ConfirmPhrase())
}

// firstNodeError surfaces the most meaningful per-node failure so the exit
// code and remedy reflect what actually went wrong. Blocking-dependency
// refusals outrank generic delete failures.
func firstNodeError(r *run.Run) error {
	var fallback error
	for _, n := range r.Nodes() {
		if n.Err == nil {
			continue
		}
		if orcherrors.GetCode(n.Err) == orcherrors.CodeBlockingDependency {
			return n.Err
		}
		if fallback == nil {
			fallback = n.Err
		}
	}
	if fallback != nil {
		return fallback
	}
	return orcherrors.ErrApplyFailed(r.Environment, "destroy did not complete", nil)
}
