package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newSettingsCmd() *cobra.Command {
	var gamePath string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change app settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Settings
			if cmd.Flags().Changed("game-path") {
				req := request.UpdateSettingsRequest{GamePath: &gamePath}
				if err := client.Patch(cmd.Context(), "/api/v1/settings", req, &result); err != nil {
					return err
				}
			} else if err := client.Get(cmd.Context(), "/api/v1/settings", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&gamePath, "game-path", "", "Game installation directory passed to every launch")

	return cmd
}
