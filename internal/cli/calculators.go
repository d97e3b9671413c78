package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

func addCalculatorCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newFDCmd(app))
	rootCmd.AddCommand(newPPFCmd(app))
	rootCmd.AddCommand(newToolCmd(app))
}

func newFDCmd(app *App) *cobra.Command {
	var (
		principal   string
		rate        float64
		start       string
		years       int
		months      int
		days        int
		compounding string
	)

	cmd := &cobra.Command{
		Use:   "fd",
		Short: "Project a fixed deposit across fiscal years",
		Example: `  fintools fd --principal 1,00,000 --rate 7.5 --start 01-04-2024 --years 5
  fintools fd --principal 50000 --rate 6.8 --months 6 --compounding monthly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := utils.ParseAmount(principal)
			if err != nil {
				return err
			}
			raw, err := app.CallTool(cmd.Context(), "fd_projection", map[string]interface{}{
				"principal":           amount,
				"annual_rate_percent": rate,
				"start_date":          start,
				"tenure_years":        years,
				"tenure_months":       months,
				"tenure_days":         days,
				"compounding":         compounding,
			})
			if err != nil {
				return err
			}
			result := raw.(*calculations.FDResult)

			out := NewOutput(cmd)
			return out.Result(result, func() {
				rows := make([][]string, 0, len(result.FYData))
				for _, e := range result.FYData {
					rows = append(rows, []string{
						e.FYLabel,
						calendar.FormatDate(e.PeriodStart),
						calendar.FormatDate(e.PeriodEnd),
						strconv.Itoa(e.Days),
						money(e.StartBalance),
						money(e.InterestEarned),
						money(e.EndBalance),
					})
				}
				out.Table([]string{"FY", "FROM", "TO", "DAYS", "OPENING", "INTEREST", "CLOSING"}, rows)
				out.Printf("\nMaturity %s on %s, interest earned %s\n",
					money(result.Summary.MaturityAmount),
					calendar.FormatDate(result.Summary.MaturityDate),
					money(result.Summary.TotalInterestEarned))
			})
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "deposit amount")
	cmd.Flags().Float64Var(&rate, "rate", 0, "annual interest rate, percent")
	cmd.Flags().StringVar(&start, "start", "", "start date DD-MM-YYYY (default: today)")
	cmd.Flags().IntVar(&years, "years", 0, "tenure years")
	cmd.Flags().IntVar(&months, "months", 0, "tenure months (0-11)")
	cmd.Flags().IntVar(&days, "days", 0, "tenure days (0-31)")
	cmd.Flags().StringVar(&compounding, "compounding", string(calculations.CompoundingQuarterly), "monthly, quarterly, halfYearly or annually")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func newPPFCmd(app *App) *cobra.Command {
	var (
		startYear    int
		rate         float64
		amount       string
		firstDeposit string
		yearsFile    string
	)

	cmd := &cobra.Command{
		Use:   "ppf",
		Short: "Project a PPF account over its 15 fiscal years",
		Long: `Projects a PPF account either with one fixed yearly amount (--amount) or
with explicit dated contributions per fiscal year read from a JSON file (--years-file):

  [{"year": 2015, "interest_rate": 8.7, "contributions": [{"amount": 50000, "date": "10-04-2015"}]}]

Years without contributions repeat the most recent contributed year.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{
				"start_year":    startYear,
				"interest_rate": rate,
			}
			if yearsFile != "" {
				data, err := os.ReadFile(yearsFile)
				if err != nil {
					return err
				}
				var years []interface{}
				if err := json.Unmarshal(data, &years); err != nil {
					return fmt.Errorf("parse %s: %w", yearsFile, err)
				}
				params["mode"] = "variable"
				params["years"] = years
			} else {
				yearly, err := utils.ParseAmount(amount)
				if err != nil {
					return err
				}
				params["mode"] = "fixed"
				params["yearly_amount"] = yearly
				params["first_deposit_date"] = firstDeposit
			}

			raw, err := app.CallTool(cmd.Context(), "ppf_projection", params)
			if err != nil {
				return err
			}
			result := raw.(*calculations.PPFResult)

			out := NewOutput(cmd)
			return out.Result(result, func() {
				rows := make([][]string, 0, len(result.YearlyData))
				for _, y := range result.YearlyData {
					rows = append(rows, []string{
						y.FYLabel,
						percent(y.InterestRate),
						money(y.OpeningBalance),
						money(y.Contribution),
						money(y.InterestEarned),
						money(y.ClosingBalance),
					})
				}
				out.Table([]string{"FY", "RATE", "OPENING", "DEPOSITED", "INTEREST", "CLOSING"}, rows)
				out.Printf("\nInvested %s, interest %s, maturity %s (%s)\n",
					money(result.TotalInvested),
					money(result.TotalInterestEarned),
					money(result.MaturityAmount),
					percent(result.AbsoluteReturnPercentage))
			})
		},
	}

	cmd.Flags().IntVar(&startYear, "start-year", 0, "fiscal year of the account opening, e.g. 2015 for FY 2015-16")
	cmd.Flags().Float64Var(&rate, "rate", 0, "default annual interest rate, percent (default: PPF_DEFAULT_RATE)")
	cmd.Flags().StringVar(&amount, "amount", "", "fixed yearly contribution")
	cmd.Flags().StringVar(&firstDeposit, "first-deposit", "", "date of the first-year deposit DD-MM-YYYY")
	cmd.Flags().StringVar(&yearsFile, "years-file", "", "JSON file with per-year contributions")
	_ = cmd.MarkFlagRequired("start-year")
	cmd.MarkFlagsMutuallyExclusive("amount", "years-file")
	return cmd
}

func newToolCmd(app *App) *cobra.Command {
	var paramsFile string

	cmd := &cobra.Command{
		Use:   "tool <name> [params-json]",
		Short: "Call any tool with JSON parameters",
		Example: `  fintools tool scheme_returns '{"scheme_code": 120503}'
  fintools tool mf_valuation --params-file valuation.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch {
			case paramsFile != "":
				b, err := os.ReadFile(paramsFile)
				if err != nil {
					return err
				}
				data = b
			case len(args) == 2:
				data = []byte(args[1])
			}

			params := map[string]interface{}{}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &params); err != nil {
					return fmt.Errorf("parameters must be a JSON object: %w", err)
				}
			}

			if _, hasHoldings := params["holdings"]; args[0] == "portfolio_timeline" && !hasHoldings {
				if _, err := app.Storage(); err != nil {
					return err
				}
			}

			result, err := app.CallTool(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return NewOutput(cmd).JSON(result)
		},
	}

	cmd.Flags().StringVar(&paramsFile, "params-file", "", "read parameters from a JSON file")
	return cmd
}
