package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newToolCmd() *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "tool [name] [key=value...]",
		Short: "List or run maintenance tools",
		Long: `Without arguments, list the maintenance tools. With a name, run it.
Destructive tools need --confirm yes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output(cmd)
			if len(args) == 0 {
				var result response.ToolList
				if err := client.Get(cmd.Context(), "/api/v1/tools", &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}
			var result response.ToolResult
			req := request.RunToolRequest{Args: toolArgs, Confirm: confirm}
			if err := client.Post(cmd.Context(), "/api/v1/tools/"+args[0], req, &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "Confirmation text for destructive tools")

	return cmd
}

func parseToolArgs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q must be key=value", p)
		}
		args[k] = v
	}
	return args, nil
}
