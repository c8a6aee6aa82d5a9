package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

type verifyInput struct {
	Voter    string `validate:"required,min=3,max=64"`
	Frames   string `validate:"required,dir"`
	Capture  string `validate:"omitempty,file"`
	Election string `validate:"omitempty,uuid"`
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	var in verifyInput
	var realtime bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a verification attempt from a directory of frames",
		Long: `Replays the images in --frames (sorted by name) through the liveness window,
then matches --capture (or the last frame) against the voter's enrolled embedding.
The outcome is printed as JSON; a non-success outcome exits with status 1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate.Struct(in); err != nil {
				return fmt.Errorf("invalid input: %w", err)
			}

			ctx := cmd.Context()
			rt, err := opts.open(ctx, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := rt.verificationService(ctx)
			if err != nil {
				return err
			}

			src, err := camera.LoadDir(in.Frames, in.Capture)
			if err != nil {
				return err
			}

			var electionID *uuid.UUID
			if in.Election != "" {
				id := uuid.MustParse(in.Election)
				electionID = &id
			}

			var schedule liveness.Schedule = liveness.Replay{Start: time.Now()}
			if realtime {
				schedule = liveness.Realtime{}
			}

			window := verification.NewConfig(rt.cfg.Verification).Liveness.Capacity()
			bar := progressbar.NewOptions(window,
				progressbar.OptionSetDescription("liveness"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
			)

			outcome, err := svc.Verify(ctx, service.VerifyRequest{
				VoterIdentifier: in.Voter,
				ElectionID:      electionID,
				Camera:          &progressSource{Source: src, bar: bar},
				Schedule:        schedule,
				Observer: func(s verification.State) {
					if s == verification.StateCapturing {
						_ = bar.Finish()
					}
				},
			})
			if err != nil {
				return err
			}

			return printOutcome(cmd, outcome)
		},
	}

	cmd.Flags().StringVar(&in.Voter, "voter", "", "Voter identifier")
	cmd.Flags().StringVarP(&in.Frames, "frames", "f", "", "Directory of JPEG/PNG/WebP frames in capture order")
	cmd.Flags().StringVarP(&in.Capture, "capture", "c", "", "Decisive capture frame (default: last frame)")
	cmd.Flags().StringVar(&in.Election, "election", "", "Election UUID")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Sample on the wall clock instead of one frame per tick")

	return cmd
}

// progressSource advances the bar on every sampled frame
type progressSource struct {
	camera.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) Frame(ctx context.Context) (camera.Frame, error) {
	f, err := p.Source.Frame(ctx)
	_ = p.bar.Add(1)
	return f, err
}

func printOutcome(cmd *cobra.Command, outcome *verification.Outcome) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return err
	}

	if outcome.State != verification.StateSuccess {
		return fmt.Errorf("verification %s: %s", outcome.State, outcome.Reason)
	}
	return nil
}
