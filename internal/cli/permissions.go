package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trafficportal/internal/permissions"
)

func newPermissionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Show and edit a city's dashboard permissions",
		Long: `Show and edit which dashboard sections each role may open in one city.

Admins open every section regardless of the matrix. Role names containing
spaces must be quoted.

Examples:
  portalctl permissions show ISB
  portalctl permissions toggle ISB "Traffic sergeant 1" reports
  portalctl permissions all KHI traffic off`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <code>",
			Short: "Print the matrix",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.portal.Permissions.Load(cmd.Context(), strings.ToUpper(args[0]))
				if err != nil {
					return err
				}
				return printMatrix(cmd, m)
			},
		},
		&cobra.Command{
			Use:   "toggle <code> <role> <section>",
			Short: "Flip one section for one role",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.portal.Permissions.Toggle(cmd.Context(), strings.ToUpper(args[0]), args[1], args[2])
				if err != nil {
					return err
				}
				return printMatrix(cmd, m)
			},
		},
		&cobra.Command{
			Use:       "all <code> <role> <on|off>",
			Short:     "Enable or disable every section for one role",
			Args:      cobra.ExactArgs(3),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				var enable bool
				switch args[2] {
				case "on":
					enable = true
				case "off":
				default:
					return fmt.Errorf("expected on or off, got %q", args[2])
				}

				m, err := a.portal.Permissions.ToggleAll(cmd.Context(), strings.ToUpper(args[0]), args[1], enable)
				if err != nil {
					return err
				}
				return printMatrix(cmd, m)
			},
		},
	)
	return cmd
}

// printMatrix draws roles as rows and catalog sections as columns.
func printMatrix(cmd *cobra.Command, m permissions.Matrix) error {
	roles := make([]string, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "ROLE")
	for _, id := range permissions.SectionIDs() {
		fmt.Fprintf(w, "\t%s", id)
	}
	fmt.Fprintln(w)

	for _, role := range roles {
		fmt.Fprintf(w, "%q", role)
		for _, id := range permissions.SectionIDs() {
			mark := "-"
			if m.Has(role, id) {
				mark = "x"
			}
			fmt.Fprintf(w, "\t%s", mark)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
