package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/output"
	"github.com/glidepath/glidepath/internal/preflight"
	"github.com/glidepath/glidepath/internal/run"
)

// deployAction maps a CLI action name to a target and mode.
type deployAction struct {
	target string
	apply  bool
}

var deployActions = map[string]deployAction{
	"plan-infra":  {target: "infra"},
	"apply-infra": {target: "infra", apply: true},
	"plan-app":    {target: "app"},
	"apply-app":   {target: "app", apply: true},
	"plan":        {target: "all"},
	"apply":       {target: "all", apply: true},
}

var deployCmd = &cobra.Command{
	Use:   "deploy <environment> <action>",
	Short: "Plan or apply a staged rollout",
	Long: `Plan or apply a staged rollout for an environment.

Actions:
  plan-infra   show intended infra actions without mutating anything
  apply-infra  create the network, subnet, cluster, and node pool
  plan-app     show intended app actions
  apply-app    deploy n8n and its database onto the cluster
  plan         plan both stages
  apply        apply both stages, infra first`,
	Args: cobra.ExactArgs(2),
	RunE: deployRun,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func deployRun(cmd *cobra.Command, args []string) error {
	envName, actionName := args[0], args[1]

	action, ok := deployActions[actionName]
	if !ok {
		return orcherrors.ErrConfigInvalid(
			fmt.Sprintf("unknown action %q (known: plan-infra, apply-infra, plan-app, apply-app, plan, apply)", actionName), nil)
	}
	env, err := environmentFromArgs(envName)
	if err != nil {
		return err
	}
	stages := graph.Stages(action.target)

	s, err := newSession(cmd.Context(), env)
	if err != nil {
		return err
	}
	defer s.close()

	if !action.apply {
		return planOnly(cmd.Context(), s, envName, action.target, stages)
	}
	return applyStages(cmd.Context(), s, envName, action.target, stages)
}

func planOnly(ctx context.Context, s *session, envName, target string, stages []graph.Stage) error {
	plan, err := s.executor.PlanOnly(ctx, envName, target, stages...)
	if err != nil {
		return err
	}

	output.Subheader(fmt.Sprintf("Plan for %s (%s)", envName, target))
	total := len(plan.Actions)
	for i, a := range plan.Actions {
		detail := a.Action
		if a.Reason != "" {
			detail += " (" + a.Reason + ")"
		}
		output.Step(i+1, total, a.Node+": "+detail)
	}

	path := run.PlanPath(envName, target)
	if err := plan.Save(path); err != nil {
		return err
	}
	output.Blank()
	output.Info("Plan saved to %s; it is consumed by the next apply", path)
	return nil
}

func applyStages(ctx context.Context, s *session, envName, target string, stages []graph.Stage) error {
	lock, err := run.AcquireLock(envName)
	if err != nil {
		return err
	}
	defer lock.Release()

	checks := s.checker.ChecksFor(stages)

	output.Info("Running preflight checks")
	r := run.New(envName, target, stages)
	pre := preflight.Run(ctx, slog.Default(), preflight.PreStage, checks)
	r.RecordPreflight(pre)
	if !pre.Passed {
		for _, f := range pre.Failures {
			output.Error("%s: %s", f.Check, f.Reason)
		}
		r.Finalize(run.OutcomeValidationFailed)
		return orcherrors.ErrPreflightFailed(
			fmt.Sprintf("%d preflight check(s) failed, nothing was changed", len(pre.Failures)), nil)
	}
	output.Success("Preflight checks passed")

	// A saved plan for this target is consumed by the apply; cloud state, not
	// the artifact, decides what actually happens.
	planPath := run.PlanPath(envName, target)
	if plan, loadErr := run.LoadPlan(planPath); loadErr == nil {
		output.Info("Consuming plan from %s (created %s)", planPath, plan.CreatedAt.Format(time.RFC3339))
		run.Discard(planPath)
	}

	applyErr := s.executor.Apply(ctx, r, stages...)

	post := preflight.Run(ctx, slog.Default(), preflight.PostStage, checks)
	for _, f := range post.Failures {
		r.Warn(fmt.Sprintf("%s: %s", f.Check, f.Reason))
	}

	outcome := r.Finalize("")
	printRunSummary(r, outcome)

	if applyErr != nil {
		return applyErr
	}
	switch outcome {
	case run.OutcomeSuccess, run.OutcomeCanceled:
		return nil
	default:
		return orcherrors.ErrApplyFailed(envName,
			fmt.Sprintf("deploy finished with outcome %s; re-run after fixing the failed resources, completed resources are skipped", outcome), nil)
	}
}

func printRunSummary(r *run.Run, outcome run.Outcome) {
	output.Subheader("Run summary")
	nodes := r.Nodes()
	total := len(nodes)
	for i, n := range nodes {
		msg := n.ID
		if n.Detail != "" {
			msg += ": " + n.Detail
		}
		switch n.State {
		case graph.StateReady, graph.StateDeleted:
			output.StepSuccess(i+1, total, msg)
		case graph.StateDegraded, graph.StateBlocked:
			output.StepError(i+1, total, msg)
		default:
			output.Step(i+1, total, msg)
		}
	}

	for _, w := range r.Warnings() {
		output.Warning("%s", w)
	}

	output.Blank()
	elapsed := r.Duration().Round(time.Second)
	switch outcome {
	case run.OutcomeSuccess:
		output.Success("Outcome: %s (%s)", outcome, elapsed)
	case run.OutcomeCanceled:
		output.Info("Outcome: %s (%s)", outcome, elapsed)
	default:
		output.Error("Outcome: %s (%s)", outcome, elapsed)
	}
}
