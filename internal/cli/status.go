package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newStatusCmd() *cobra.Command {
	var (
		refresh bool
		hidden  bool
		visible bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which accounts have the launcher or game running",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.StatusResponse
			var err error
			switch {
			case hidden || visible:
				err = client.Put(cmd.Context(), "/api/v1/status/visibility", request.VisibilityRequest{Visible: visible}, &result)
			case refresh:
				err = client.Post(cmd.Context(), "/api/v1/status/refresh", nil, &result)
			default:
				err = client.Get(cmd.Context(), "/api/v1/status", &result)
			}
			if err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Poll now instead of showing the last snapshot")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Tell the daemon nobody is watching (slower polling)")
	cmd.Flags().BoolVar(&visible, "visible", false, "Tell the daemon the view is visible again")
	cmd.MarkFlagsMutuallyExclusive("refresh", "hidden", "visible")

	return cmd
}
