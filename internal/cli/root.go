// Package cli implements verifyctl, the operator tool that drives the
// verification core from a terminal: frame directories instead of a camera.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	profile  string
	verbose  bool
	validate *validator.Validate
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{validate: validator.New()}

	root := &cobra.Command{
		Use:           "verifyctl",
		Short:         "Voter identity verification operator tool",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "YAML tuning profile (overrides VERIFY_PROFILE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newVerifyCommand(opts),
		newDistanceCommand(opts),
		newEnrollCommand(opts),
		newConsumeCommand(opts),
	)

	return root
}

// Execute runs verifyctl until completion or Ctrl+C and returns the exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// tuning returns the default verification values with --profile applied
func (o *rootOptions) tuning() (config.Verification, error) {
	v := config.DefaultVerification()
	if o.profile != "" {
		if err := v.ApplyProfile(o.profile); err != nil {
			return v, err
		}
	}
	return v, v.Validate()
}

// loadConfig reads the service environment; --profile wins over VERIFY_PROFILE
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.profile != "" {
		if err := cfg.Verification.ApplyProfile(o.profile); err != nil {
			return nil, err
		}
		if err := cfg.Verification.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// logger writes to stderr so stdout stays machine readable
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return config.NewLoggerTo(w, "cli", level)
}
