package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type enrollInput struct {
	Voter string `validate:"required,min=3,max=64"`
	Name  string `validate:"max=200"`
	Image string `validate:"required,file"`
}

func newEnrollCommand(opts *rootOptions) *cobra.Command {
	var in enrollInput

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Store a voter's reference embedding from an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate.Struct(in); err != nil {
				return fmt.Errorf("invalid input: %w", err)
			}

			image, err := os.ReadFile(in.Image)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			ctx := cmd.Context()
			rt, err := opts.open(ctx, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := rt.voterService(ctx)
			if err != nil {
				return err
			}

			voter, err := svc.Enroll(ctx, in.Voter, in.Name, image)
			if err != nil {
				return err
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(voter)
		},
	}

	cmd.Flags().StringVar(&in.Voter, "voter", "", "Voter identifier")
	cmd.Flags().StringVar(&in.Name, "name", "", "Voter name")
	cmd.Flags().StringVarP(&in.Image, "image", "i", "", "Reference face image")

	return cmd
}
