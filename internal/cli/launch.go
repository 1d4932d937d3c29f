package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newLaunchCmd() *cobra.Command {
	var (
		bnetOnly bool
		force    bool
		noPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "launch <id>",
		Short: "Launch an account",
		Long: `Launch an account. If the agent needs a decision (a leftover save archive,
an OS user that never signed in), the choices are printed and read from
stdin. With --no-prompt the decision is left open for "multiplay notification".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.LaunchRequest{Mode: "full", Force: force}
			if bnetOnly {
				req.Mode = "bnet_only"
			}

			var result response.LaunchResponse
			if err := client.Post(cmd.Context(), "/api/v1/accounts/"+args[0]+"/launch", req, &result); err != nil {
				return err
			}
			out := output(cmd)
			out.Print(result)

			if result.Notification == nil || noPrompt {
				return nil
			}
			return promptLoop(cmd.Context(), out, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&bnetOnly, "bnet-only", false, "Start only the Battle.net launcher")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the first sign-in check")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Leave decisions open instead of prompting")

	return cmd
}

// promptLoop answers the open notification from in until none remains.
// Choosing an action may open a follow-up notification.
func promptLoop(ctx context.Context, out *Output, in io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "Choice (number, or d to dismiss): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			out.PrintMessage("No choice made; the notification stays open")
			return nil
		}
		answer := strings.TrimSpace(scanner.Text())

		if strings.EqualFold(answer, "d") {
			if err := client.Post(ctx, "/api/v1/notification/dismiss", nil, nil); err != nil {
				return err
			}
			out.PrintMessage("Dismissed")
			return nil
		}

		index, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintf(w, "Not a choice: %q\n", answer)
			continue
		}

		var next response.Notification
		status, err := client.Do(ctx, http.MethodPost, "/api/v1/notification/actions/"+strconv.Itoa(index), nil, &next)
		if err != nil {
			return err
		}
		if status == http.StatusNoContent {
			out.PrintMessage("Done; see `multiplay logs` for the result")
			return nil
		}
		out.Print(next)
	}
}
