package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/internal/portfolio"
	"github.com/cloud-ru/mcp-fintools-go/internal/tools"
	"github.com/cloud-ru/mcp-fintools-go/internal/validators"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	portfolioCmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Manage mutual fund investments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			_, err := app.Storage()
			return err
		},
	}
	portfolioCmd.AddCommand(
		newPortfolioListCmd(app),
		newPortfolioAddCmd(app),
		newPortfolioRemoveCmd(app),
		newPortfolioCancelSIPCmd(app),
		newPortfolioModifySIPCmd(app),
		newPortfolioClearCmd(app),
		newPortfolioValueCmd(app),
		newPortfolioInstallmentsCmd(app),
		newPortfolioTimelineCmd(app),
	)

	watchlistCmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage watched schemes",
		PersistentPreRunE: portfolioCmd.PersistentPreRunE,
	}
	watchlistCmd.AddCommand(
		newWatchlistListCmd(app),
		newWatchlistAddCmd(app),
		newWatchlistRemoveCmd(app),
	)

	rootCmd.AddCommand(portfolioCmd, watchlistCmd)
}

func parseSchemeCode(arg string) (int, error) {
	code, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid scheme code %q", arg)
	}
	if err := validators.CheckSchemeCode(code); err != nil {
		return 0, err
	}
	return code, nil
}

func newPortfolioListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored investments",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := app.investments.All(cmd.Context())
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(all, func() {
				var rows [][]string
				for _, s := range all {
					for _, rec := range s.Investments {
						amount := rec.Amount
						if rec.InvestmentType == calculations.InvestmentSIP {
							amount = rec.SIPAmount
						}
						rows = append(rows, []string{
							strconv.Itoa(s.SchemeCode),
							rec.ID,
							string(rec.InvestmentType),
							rec.StartDate,
							money(amount),
							rec.SIPEndDate,
						})
					}
				}
				if len(rows) == 0 {
					out.Printf("No investments stored\n")
					return
				}
				out.Table([]string{"SCHEME", "ID", "TYPE", "START", "AMOUNT", "SIP END"}, rows)
			})
		},
	}
}

func newPortfolioAddCmd(app *App) *cobra.Command {
	var (
		kind   string
		start  string
		amount string
		sipDay int
		end    string
	)

	cmd := &cobra.Command{
		Use:   "add <scheme-code>",
		Short: "Add a lumpsum or SIP investment",
		Example: `  fintools portfolio add 120503 --type lumpsum --start 15-06-2021 --amount 50000
  fintools portfolio add 120503 --type sip --start 05-01-2022 --amount 5000 --sip-day 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			value, err := utils.ParseAmount(amount)
			if err != nil {
				return err
			}

			rec := calculations.DeclarationRecord{
				InvestmentType: calculations.InvestmentType(kind),
				StartDate:      start,
			}
			if rec.InvestmentType == calculations.InvestmentSIP {
				rec.SIPAmount = value
				rec.SIPMonthlyDate = sipDay
				rec.SIPEndDate = end
				if rec.SIPMonthlyDate == 0 {
					if d, err := calendar.ParseDate(start); err == nil {
						rec.SIPMonthlyDate = d.Day()
					}
				}
			} else {
				rec.Amount = value
			}
			if err := validators.CheckDeclaration(app.Config, rec); err != nil {
				return err
			}

			_, added, err := app.investments.Add(cmd.Context(), code, rec)
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(added, func() {
				out.Printf("Added %s %s to scheme %d\n", added.InvestmentType, added.ID, code)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(calculations.InvestmentLumpsum), "lumpsum or sip")
	cmd.Flags().StringVar(&start, "start", "", "investment or first SIP date DD-MM-YYYY")
	cmd.Flags().StringVar(&amount, "amount", "", "lumpsum amount or monthly SIP amount")
	cmd.Flags().IntVar(&sipDay, "sip-day", 0, "day of month for SIP installments (default: start day)")
	cmd.Flags().StringVar(&end, "end", "", "SIP end date DD-MM-YYYY")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPortfolioRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <scheme-code> <investment-id>",
		Short: "Remove an investment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			if _, err := app.investments.Remove(cmd.Context(), code, args[1]); err != nil {
				return err
			}
			NewOutput(cmd).Printf("Removed %s\n", args[1])
			return nil
		},
	}
}

// editSIP применяет изменение к сохраненному SIP
func editSIP(cmd *cobra.Command, app *App, args []string, edit func(calculations.SIP) (calculations.SIP, error)) error {
	code, err := parseSchemeCode(args[0])
	if err != nil {
		return err
	}
	scheme, ok, err := app.investments.Scheme(cmd.Context(), code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: scheme %d", portfolio.ErrInvestmentNotFound, code)
	}

	for _, rec := range scheme.Investments {
		if rec.ID != args[1] {
			continue
		}
		decl, err := rec.Declaration()
		if err != nil {
			return err
		}
		sip, ok := decl.(calculations.SIP)
		if !ok {
			return fmt.Errorf("investment %s is not a SIP", rec.ID)
		}
		edited, err := edit(sip)
		if err != nil {
			return err
		}
		updated := calculations.RecordOf(edited)
		if err := validators.CheckDeclaration(app.Config, updated); err != nil {
			return err
		}
		if _, err := app.investments.Update(cmd.Context(), code, updated); err != nil {
			return err
		}
		out := NewOutput(cmd)
		return out.Result(updated, func() {
			out.Printf("Updated SIP %s\n", updated.ID)
		})
	}
	return fmt.Errorf("%w: %s", portfolio.ErrInvestmentNotFound, args[1])
}

func newPortfolioCancelSIPCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "cancel-sip <scheme-code> <investment-id>",
		Short: "Stop a SIP from the given date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSIP(cmd, app, args, func(sip calculations.SIP) (calculations.SIP, error) {
				end := calendar.Today()
				if date != "" {
					d, err := calendar.ParseDate(date)
					if err != nil {
						return sip, err
					}
					end = d
				}
				return calculations.CancelSIP(sip, end), nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "cancellation date DD-MM-YYYY (default: today)")
	return cmd
}

func newPortfolioModifySIPCmd(app *App) *cobra.Command {
	var (
		from   string
		amount string
	)

	cmd := &cobra.Command{
		Use:   "modify-sip <scheme-code> <investment-id>",
		Short: "Change the SIP amount from the given date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSIP(cmd, app, args, func(sip calculations.SIP) (calculations.SIP, error) {
				effective, err := calendar.ParseDate(from)
				if err != nil {
					return sip, err
				}
				value, err := utils.ParseAmount(amount)
				if err != nil {
					return sip, err
				}
				return calculations.ModifySIPAmount(sip, effective, value), nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "effective date DD-MM-YYYY")
	cmd.Flags().StringVar(&amount, "amount", "", "new monthly amount")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPortfolioClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all stored investments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.investments.Clear(cmd.Context()); err != nil {
				return err
			}
			NewOutput(cmd).Printf("Portfolio cleared\n")
			return nil
		},
	}
}

// storedSchemeParams параметры инструментов одного фонда по сохраненным вложениям
func storedSchemeParams(cmd *cobra.Command, app *App, arg string) (map[string]interface{}, error) {
	code, err := parseSchemeCode(arg)
	if err != nil {
		return nil, err
	}
	scheme, ok, err := app.investments.Scheme(cmd.Context(), code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: scheme %d", portfolio.ErrInvestmentNotFound, code)
	}
	investments := make([]interface{}, 0, len(scheme.Investments))
	for _, rec := range scheme.Investments {
		investments = append(investments, rec)
	}
	return map[string]interface{}{"scheme_code": code, "investments": investments}, nil
}

func newPortfolioValueCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "value <scheme-code>",
		Short: "Value stored investments of a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := storedSchemeParams(cmd, app, args[0])
			if err != nil {
				return err
			}
			raw, err := app.CallTool(cmd.Context(), "mf_valuation", params)
			if err != nil {
				return err
			}
			v := raw.(*tools.ValuationResult)

			out := NewOutput(cmd)
			return out.Result(v, func() {
				out.Printf("%s (%d)\n", v.SchemeName, v.SchemeCode)
				out.Table([]string{"INVESTED", "VALUE", "GAIN", "RETURN", "XIRR", "CAGR", "HELD"}, [][]string{{
					money(v.Metrics.TotalInvested),
					money(v.Metrics.CurrentValue),
					money(v.Metrics.AbsoluteGain),
					percent(v.Metrics.PercentageReturn),
					xirrText(v.XIRR),
					percent(v.CAGR),
					v.Duration,
				}})
			})
		},
	}
}

func xirrText(x calculations.XIRRResult) string {
	if !x.Converged {
		return "n/a"
	}
	return percent(x.RatePercent)
}

func newPortfolioInstallmentsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "installments <scheme-code>",
		Short: "List dated installments of stored investments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := storedSchemeParams(cmd, app, args[0])
			if err != nil {
				return err
			}
			raw, err := app.CallTool(cmd.Context(), "mf_installments", params)
			if err != nil {
				return err
			}
			res := raw.(*tools.InstallmentsResult)

			out := NewOutput(cmd)
			return out.Result(res, func() {
				rows := make([][]string, 0, len(res.Installments))
				for _, inst := range res.Installments {
					rows = append(rows, []string{
						calendar.FormatDate(inst.Date),
						string(inst.Kind),
						money(inst.Amount),
						strconv.FormatFloat(inst.NAV, 'f', 4, 64),
						strconv.FormatFloat(inst.Units, 'f', 3, 64),
					})
				}
				out.Table([]string{"DATE", "TYPE", "AMOUNT", "NAV", "UNITS"}, rows)
			})
		},
	}
}

func newPortfolioTimelineCmd(app *App) *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show the portfolio value history",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.CallTool(cmd.Context(), "portfolio_timeline", map[string]interface{}{"points": points})
			if err != nil {
				return err
			}
			res := raw.(*tools.TimelineResult)

			out := NewOutput(cmd)
			return out.Result(res, func() {
				rows := make([][]string, 0, len(res.Snapshots))
				for _, s := range res.Snapshots {
					rows = append(rows, []string{
						calendar.FormatDate(s.Date),
						money(s.InvestedAmount),
						money(s.CurrentValue),
						money(s.Gain),
						percent(s.ReturnPercentage),
					})
				}
				out.Table([]string{"DATE", "INVESTED", "VALUE", "GAIN", "RETURN"}, rows)
				out.Printf("\n%d of %d points, highest gain %s, lowest gain %s\n",
					len(res.Snapshots), res.TotalPoints,
					money(res.Statistics.HighestGain), money(res.Statistics.LowestGain))
			})
		},
	}
	cmd.Flags().IntVar(&points, "points", 20, "number of points to show")
	return cmd
}

func newWatchlistListCmd(app *App) *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watched schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := app.watchlist.List(cmd.Context())
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			if !details {
				return out.Result(codes, func() {
					for _, c := range codes {
						out.Printf("%d\n", c)
					}
				})
			}

			rows := make([][]string, 0, len(codes))
			for _, c := range codes {
				s, err := app.schemes.Scheme(cmd.Context(), c)
				if err != nil {
					app.Logger.Warn().Err(err).Int("scheme_code", c).Msg("scheme lookup failed")
					rows = append(rows, []string{strconv.Itoa(c), "", "", ""})
					continue
				}
				rows = append(rows, []string{strconv.Itoa(c), s.SchemeName, s.NAV, s.Date})
			}
			return out.Result(rows, func() {
				out.Table([]string{"SCHEME", "NAME", "NAV", "DATE"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "fetch scheme names and latest NAV")
	return cmd
}

func newWatchlistAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <scheme-code>",
		Short: "Watch a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			codes, err := app.watchlist.Add(cmd.Context(), code)
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(codes, func() {
				out.Printf("Watching %d schemes\n", len(codes))
			})
		},
	}
}

func newWatchlistRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <scheme-code>",
		Short: "Stop watching a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseSchemeCode(args[0])
			if err != nil {
				return err
			}
			codes, err := app.watchlist.Remove(cmd.Context(), code)
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			return out.Result(codes, func() {
				out.Printf("Watching %d schemes\n", len(codes))
			})
		},
	}
}
