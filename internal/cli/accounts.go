package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api/request"
	"github.com/mcoot/d2r-multiplay/internal/api/response"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage the configured accounts",
	}

	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsAddCmd())
	cmd.AddCommand(newAccountsRemoveCmd())
	cmd.AddCommand(newAccountsOrderCmd())
	cmd.AddCommand(newAccountsCheckCmd())
	cmd.AddCommand(newAccountsUsersCmd())

	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.AccountList
			if err := client.Get(cmd.Context(), "/api/v1/accounts", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newAccountsAddCmd() *cobra.Command {
	var req request.CreateAccountRequest

	cmd := &cobra.Command{
		Use:   "add <os-user> <bnet-account>",
		Short: "Add an account bound to an OS user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.WinUser = args[0]
			req.BnetAccount = args[1]

			var result response.Account
			if err := client.Post(cmd.Context(), "/api/v1/accounts", req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.WinPass, "password", "", "OS user password (leave empty for the interactive user)")
	cmd.Flags().StringVar(&req.Note, "note", "", "Free-form note")
	cmd.Flags().BoolVar(&req.PasswordNeverExpires, "never-expires", false, "Set the OS password to never expire")
	cmd.Flags().BoolVar(&req.CreateOSUser, "create-user", false, "Create the OS user first")

	return cmd
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an account (the OS user is kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/accounts/"+args[0]); err != nil {
				return err
			}
			output(cmd).PrintMessage(fmt.Sprintf("Removed %s", args[0]))
			return nil
		},
	}
}

func newAccountsOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>...",
		Short: "Set the display order; every account must be listed once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.AccountList
			if err := client.Put(cmd.Context(), "/api/v1/accounts/order", request.ReorderRequest{IDs: args}, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newAccountsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>",
		Short: "Check that the account's OS user has completed first sign-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Initialized
			if err := client.Get(cmd.Context(), "/api/v1/accounts/"+args[0]+"/initialized", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newAccountsUsersCmd() *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "os-users",
		Short: "List local OS users that accounts can be bound to",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/system/users"
			if deep {
				path += "?deep=true"
			}
			var result response.OSUsers
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Include users without a profile directory")

	return cmd
}
