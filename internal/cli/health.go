package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newHealthCmd() *cobra.Command {
	var system bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		Long:  "Check that the daemon is up. With --system, also ask the agent for its pre-flight report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}
			out := output(cmd)
			out.Print(result)

			if !system {
				return nil
			}
			var report response.SystemHealth
			if err := client.Get(cmd.Context(), "/api/v1/system/health", &report); err != nil {
				return err
			}
			out.Print(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Include the agent pre-flight report")

	return cmd
}
