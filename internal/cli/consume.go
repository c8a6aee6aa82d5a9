package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Redeem a ballot pass once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate.Var(pass, "required"); err != nil {
				return fmt.Errorf("invalid input: --pass %w", err)
			}

			ctx := cmd.Context()
			rt, err := opts.open(ctx, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.tokenService().ConsumeToken(ctx, pass, nil)
			if err != nil {
				return err
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(rec)
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "", "Ballot pass returned by a successful verification")

	return cmd
}
