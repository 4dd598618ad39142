package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <username>",
		Short: "Mint a bearer token for a user",
		Long: `Print a signed bearer token for username, valid for
auth.token_lifetime_minutes. Use it as "Authorization: Bearer <token>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.setup(os.Stderr)
			if err != nil {
				return err
			}

			tokens, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize JWT service: %w", err)
			}
			return printToken(cmd.Context(), tokens, args[0], cmd.OutOrStdout())
		},
	}
}

func printToken(ctx context.Context, tokens auth.JWTService, username string, out io.Writer) error {
	user, err := domain.NewUser(username)
	if err != nil {
		return err
	}

	token, err := tokens.GenerateToken(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
