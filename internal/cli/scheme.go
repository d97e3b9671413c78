package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloud-ru/mcp-fintools-go/internal/tools"
)

func addSchemeCommands(rootCmd *cobra.Command, app *App) {
	schemeCmd := &cobra.Command{
		Use:   "scheme",
		Short: "Look up mutual fund schemes on mfapi.in",
	}
	schemeCmd.AddCommand(
		newSchemeSearchCmd(app),
		newSchemeShowCmd(app),
		newSchemeLatestCmd(app),
		newSchemeReturnsCmd(app),
	)
	rootCmd.AddCommand(schemeCmd)
}

func newSchemeSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search schemes by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := app.schemes.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(results, func() {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{strconv.Itoa(r.SchemeCode), r.SchemeName})
				}
				out.Table([]string{"SCHEME", "NAME"}, rows)
			})
		},
	}
}

func newSchemeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scheme-code>",
		Short: "Show scheme details and the latest NAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			s, err := app.schemes.Scheme(cmd.Context(), code)
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(s, func() {
				out.Printf("%s (%d)\n", s.SchemeName, s.SchemeCode)
				out.Printf("%s, %s\n", s.FundHouse, s.SchemeCategory)
				out.Printf("NAV %s on %s\n", s.NAV, s.Date)
			})
		},
	}
}

func newSchemeLatestCmd(app *App) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "List schemes with their latest NAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := app.schemes.Latest(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(schemes, func() {
				rows := make([][]string, 0, len(schemes))
				for _, s := range schemes {
					rows = append(rows, []string{strconv.Itoa(s.SchemeCode), s.SchemeName, s.NAV, s.Date})
				}
				out.Table([]string{"SCHEME", "NAME", "NAV", "DATE"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of schemes")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the scheme list")
	return cmd
}

func newSchemeReturnsCmd(app *App) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "returns <scheme-code>",
		Short: "Show 1M to 10Y returns of a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			raw, err := app.CallTool(cmd.Context(), "scheme_returns", map[string]interface{}{
				"scheme_code": code,
				"as_of":       asOf,
			})
			if err != nil {
				return err
			}
			res := raw.(*tools.SchemeReturnsResult)

			out := NewOutput(cmd)
			return out.Result(res, func() {
				out.Printf("%s (%d), NAV %.4f\n", res.SchemeName, res.SchemeCode, res.LatestNAV)
				rows := make([][]string, 0, len(res.Returns))
				for _, r := range res.Returns {
					if !r.IsAvailable {
						rows = append(rows, []string{r.TimeframeLabel, "-", "-", "-"})
						continue
					}
					rows = append(rows, []string{
						r.TimeframeLabel,
						strconv.FormatFloat(r.StartNav, 'f', 4, 64),
						percent(r.PercentageReturn),
						percent(r.CAGR),
					})
				}
				out.Table([]string{"PERIOD", "START NAV", "RETURN", "CAGR"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation date DD-MM-YYYY (default: today)")
	return cmd
}
