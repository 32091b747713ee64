package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (admins only)",
	}

	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersDeleteCmd())

	return cmd
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Users.FetchAllUsers(cmd.Context())
			if msg := a.Users.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			tbl := table.New().Headers("ID", "NAME", "EMAIL", "ROLE")
			for _, u := range a.Users.Users() {
				role := "member"
				if u.IsAdmin {
					role = "admin"
				}
				tbl.Row(u.ID, u.FullName(), u.Email, role)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
}

func usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Users.DeleteUser(cmd.Context(), args[0]) {
				return fmt.Errorf("%s", a.Users.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
