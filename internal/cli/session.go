package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trafficportal/internal/models"
	"trafficportal/internal/routing"
	"trafficportal/internal/session"
)

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email|username> <password>",
		Short: "Start a session, replacing the current one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			account, err := a.portal.Sessions.ValidateCredentials(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			sess, err := a.portal.Sessions.CreateSession(ctx, account)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), go to %s\n",
				sess.Username, session.RoleDisplayName(&sess), routing.RedirectPath(&sess))
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			sess, err := a.portal.Sessions.GetSession(cmd.Context())
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(out, "Not logged in.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s <%s>\n", sess.Username, sess.Email)
			fmt.Fprintf(out, "  Role:  %s\n", session.RoleDisplayName(&sess))
			if sess.HasCity() {
				fmt.Fprintf(out, "  City:  %s (%s)\n", sess.CityName, sess.CityCode)
			}
			fmt.Fprintf(out, "  Since: %s\n", sess.LoginTime.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.portal.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newRedirectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redirect",
		Short: "Print the dashboard the current session lands on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var current *models.Session

			sess, err := a.portal.Sessions.GetSession(cmd.Context())
			switch {
			case err == nil:
				current = &sess
			case !errors.Is(err, session.ErrNoSession):
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), routing.RedirectPath(current))
			return nil
		},
	}
}
