package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/middleware"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate a token, save it for this CLI and print its hash for the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := uuid.NewString()
			hash, err := middleware.HashToken(token)
			if err != nil {
				return err
			}
			if err := cfg.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Token saved to %s\n", cfg.TokenFile)
			fmt.Fprintln(w, "Add this to the daemon config (server.token_hash) or MULTIPLAY_TOKEN_HASH:")
			fmt.Fprintln(w, hash)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hash <token>",
		Short: "Print the bcrypt hash of an existing token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	return cmd
}
