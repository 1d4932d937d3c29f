package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newNotificationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notification",
		Aliases: []string{"notify"},
		Short:   "Show or answer the open notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Notification
			if err := client.Get(cmd.Context(), "/api/v1/notification", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "choose <index>",
		Short: "Run one of the notification's actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var next response.Notification
			status, err := client.Do(cmd.Context(), http.MethodPost, "/api/v1/notification/actions/"+args[0], nil, &next)
			if err != nil {
				return err
			}
			out := output(cmd)
			if status == http.StatusNoContent {
				out.PrintMessage("Done")
				return nil
			}
			out.Print(next)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss",
		Short: "Close the notification without choosing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), "/api/v1/notification/dismiss", nil, nil); err != nil {
				return err
			}
			output(cmd).PrintMessage("Dismissed")
			return nil
		},
	})

	return cmd
}
