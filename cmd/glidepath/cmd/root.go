package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glidepath/glidepath/internal/config"
	"github.com/glidepath/glidepath/internal/constants"
	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/logger"
	"github.com/glidepath/glidepath/internal/output"
)

var (
	debug          bool
	verbose        bool
	nonInteractive bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   constants.ProjectName,
	Short: constants.ProjectName,
	Long: fmt.Sprintf(`%s - %s
Staged, idempotent rollouts of n8n on Google Kubernetes Engine`,
		constants.ProjectName, *constants.GetVersion()),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		printHeader(cmd)

		if verbose {
			output.Info("CLI build: " + output.Bold(*constants.GetVersion()))
			output.Info("Verbose output enabled")
		}
		if nonInteractive {
			output.NonInteractive = true
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logLevel := cfg.GetLogLevel()
		if debug {
			logLevel = slog.LevelDebug
		}
		runtimeEnv := constants.CLI
		if nonInteractive {
			runtimeEnv = constants.CI
		}
		logger.Initialize(runtimeEnv, logLevel)
		return nil
	},
}

// Execute runs the root command, mapping the outcome to the documented exit
// codes: 0 for success or cancellation, 1 for validation rejections, 2 for
// apply failures.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	output.Error("%s", err.Error())
	if remedy := orcherrors.GetRemedy(err); remedy != "" {
		output.Info("Remedy: %s", remedy)
	}
	if code := orcherrors.GetCode(err); code != "" && !orcherrors.IsValidationRejection(err) {
		os.Exit(2)
	}
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debugging logs")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false,
		"Never prompt; confirmation gates answer no")
}

func printHeader(cmd *cobra.Command) {
	output.Header(output.Bold(constants.ProjectName + " " + cmd.CalledAs()))
}

// environmentFromArgs resolves the named environment from the loaded config.
func environmentFromArgs(name string) (*config.Environment, error) {
	return cfg.Environment(name)
}
