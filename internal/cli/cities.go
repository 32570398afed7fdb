package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trafficportal/internal/export"
	"trafficportal/internal/models"
	"trafficportal/internal/registry"
	"trafficportal/internal/routing"
)

func newCitiesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List, create and remove cities",
	}

	var out string

	exportCmd := &cobra.Command{
		Use:   "export [code...]",
		Short: "Write generated credentials to an xlsx file",
		Long: `Write the generated account credentials of the named cities, or of every
city when none is named, to an xlsx workbook.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportCredentials(cmd, args, out)
		},
	}
	exportCmd.Flags().StringVarP(&out, "out", "o", "credentials.xlsx", "Output file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every city",
			Args:  cobra.NoArgs,
			RunE:  a.listCities,
		},
		&cobra.Command{
			Use:   "create <name> <code>",
			Short: "Create a city and print its generated accounts",
			Args:  cobra.ExactArgs(2),
			RunE:  a.createCity,
		},
		&cobra.Command{
			Use:   "delete <code|id>",
			Short: "Remove a city and its accounts",
			Args:  cobra.ExactArgs(1),
			RunE:  a.deleteCity,
		},
		&cobra.Command{
			Use:   "resolve <slug>",
			Short: "Show which city a /city/<slug> page opens",
			Args:  cobra.ExactArgs(1),
			RunE:  a.resolveCity,
		},
		exportCmd,
	)
	return cmd
}

func (a *app) listCities(cmd *cobra.Command, _ []string) error {
	cities, err := a.portal.Registry.ListCities(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cities) == 0 {
		fmt.Fprintln(out, "No cities registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tID\tPATH\tUSERS\tSTATUS")
	for _, city := range cities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			city.CityCode, city.CityName, city.ID, routing.CityPath(city.CityName), len(city.Users), city.Status)
	}
	return w.Flush()
}

func (a *app) createCity(cmd *cobra.Command, args []string) error {
	city, err := a.portal.Registry.CreateCity(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s (%s)\n", city.CityName, city.CityCode)
	return a.printAccounts(out, city)
}

func (a *app) printAccounts(out io.Writer, city models.City) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tUSERNAME\tEMAIL\tPASSWORD")
	for _, u := range city.Users {
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n",
			u.Icon, u.Title, u.Username, registry.LoginEmail(u.Username, city.CityCode, a.cfg.Portal.EmailDomain), u.Password)
	}
	return w.Flush()
}

func (a *app) deleteCity(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !strings.HasPrefix(id, "city:") {
		id = registry.CityID(id)
	}

	city, err := a.portal.Registry.DeleteCity(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s) and %d accounts\n", city.CityName, city.CityCode, len(city.Users))
	return nil
}

func (a *app) resolveCity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	city, strategy, err := a.portal.Registry.ResolveSlug(ctx, args[0])
	if errors.Is(err, registry.ErrCityNotFound) {
		cities, listErr := a.portal.Registry.ListCities(ctx)
		if listErr != nil {
			return listErr
		}
		names := make([]string, 0, len(cities))
		for _, c := range cities {
			names = append(names, c.CityName)
		}
		return fmt.Errorf("no city matches %q; available: %s", args[0], strings.Join(names, ", "))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) matched by %s\n", city.CityName, city.CityCode, strategy)
	return nil
}

func (a *app) exportCredentials(cmd *cobra.Command, codes []string, path string) error {
	ctx := cmd.Context()

	var cities []models.City
	if len(codes) == 0 {
		all, err := a.portal.Registry.ListCities(ctx)
		if err != nil {
			return err
		}
		cities = all
	}
	for _, code := range codes {
		city, err := a.portal.Registry.CityByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("%s: %w", code, err)
		}
		cities = append(cities, city)
	}

	buf, err := export.CredentialsSheet(a.cfg.Portal.EmailDomain, cities...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote credentials of %d cities to %s\n", len(cities), path)
	return nil
}
