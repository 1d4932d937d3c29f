package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newLogsCmd() *cobra.Command {
	var clearLog bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the launch and tool log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearLog {
				if err := client.Delete(cmd.Context(), "/api/v1/logs"); err != nil {
					return err
				}
				output(cmd).PrintMessage("Log cleared")
				return nil
			}

			var result response.LogsResponse
			if err := client.Get(cmd.Context(), "/api/v1/logs", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearLog, "clear", false, "Clear the log")

	return cmd
}
