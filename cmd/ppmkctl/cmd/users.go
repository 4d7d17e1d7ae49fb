package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List members and manage roles",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members with their role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")

		sess, err := login(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := sess.ListUsers(cmd.Context(), query)
		if err != nil {
			return err
		}
		if len(resp.Users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tCOURSE\tROLE")
		for _, u := range resp.Users {
			name := u.FullName
			if name == "" {
				name = u.DisplayName
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.UserID, u.Email, name, u.StudyCourse, u.Role)
		}
		return tw.Flush()
	},
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role USER_ID ROLE",
	Short: "Replace a user's role (member, admin, superadmin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := login(cmd.Context())
		if err != nil {
			return err
		}
		if err := sess.UpdateUserRole(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Role of %s set to %s.\n", args[0], args[1])
		return nil
	},
}

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "List invitations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := login(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := sess.ListInvitations(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "EMAIL\tROLE\tCREATED\tEXPIRES\tUSED")
		for _, inv := range resp.Invitations {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
				inv.Email,
				inv.Role,
				inv.CreatedAt.Local().Format("2006-01-02 15:04"),
				inv.ExpiresAt.Local().Format("2006-01-02"),
				inv.Used,
			)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(usersCmd, invitationsCmd)
	usersCmd.AddCommand(usersListCmd, usersSetRoleCmd)
	usersListCmd.Flags().StringP("query", "q", "", "filter by name, email, course, phone or role")
}
