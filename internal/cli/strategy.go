package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"option-strategist/internal/agents"
	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
	"option-strategist/internal/security"
)

var errStoreUnavailable = fmt.Errorf("%w: store not initialized", apperrors.ErrDatabaseError)

// strategyResult is the JSON shape of validate and suggest.
type strategyResult struct {
	Symbol     string            `json:"symbol"`
	Strategies []models.Strategy `json:"strategies"`
	JournalIDs []string          `json:"journal_ids,omitempty"`
}

// addStrategyCommands adds the validate and suggest commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newValidateCmd(app))
	rootCmd.AddCommand(newSuggestCmd(app))
}

func newValidateCmd(app *App) *cobra.Command {
	var input, snapshot string
	var save bool

	cmd := &cobra.Command{
		Use:   "validate <symbol>",
		Short: "Validate and price a strategy batch",
		Long: `Read a generated strategy batch, snap each leg onto the chain,
price it from the pricing table and compute its payoff.

The batch is a JSON object {"strategies": [...]}. Prose or code fences around
the object are tolerated. Use --input - to read from stdin.`,
		Example: `  strategist validate SPY --input batch.json
  cat batch.json | strategist validate SPY --input - --snapshot spy.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := commandContext(cmd)

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}

			payload, err := readInput(cmd, input)
			if err != nil {
				return err
			}

			data, err := app.marketData(symbol, snapshot)
			if err != nil {
				return err
			}
			chain, err := data.GetChain(ctx, symbol)
			if err != nil {
				return err
			}
			table, err := data.GetPricingTable(ctx, symbol)
			if err != nil {
				return err
			}

			strategies := app.Engine.AssembleBatch(payload, chain, table)
			return app.renderStrategies(cmd, output, symbol, strategies, save)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "strategy batch file, - for stdin")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "chain and pricing snapshot file")
	cmd.Flags().BoolVar(&save, "save", false, "record the validated strategies in the journal")

	return cmd
}

func newSuggestCmd(app *App) *cobra.Command {
	var outlook, spot, snapshot string
	var save bool

	cmd := &cobra.Command{
		Use:   "suggest <symbol>",
		Short: "Ask the LLM for strategies and validate them",
		Long: `Ask the configured LLM for multi-leg strategies on the symbol's chain,
then validate and price them the same way as 'strategist validate'.

Requires OPENAI_API_KEY.`,
		Example: `  strategist suggest SPY --outlook bullish --spot 101.50`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := commandContext(cmd)

			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}
			if app.Agent == nil {
				return fmt.Errorf("%w: set OPENAI_API_KEY to enable suggestions", apperrors.ErrGeneratorUnavailable)
			}

			var spotPrice decimal.Decimal
			if spot != "" {
				spotPrice, err = decimal.NewFromString(spot)
				if err != nil {
					return apperrors.NewValidationError("spot", spot, "spot must be a number")
				}
			}

			data, err := app.marketData(symbol, snapshot)
			if err != nil {
				return err
			}
			chain, err := data.GetChain(ctx, symbol)
			if err != nil {
				return err
			}
			table, err := data.GetPricingTable(ctx, symbol)
			if err != nil {
				return err
			}

			if !output.IsJSON() {
				output.Dim("Asking %s for strategies...", app.Config.Agents.Model)
			}
			strategies := app.Agent.Suggest(ctx, agents.GenerationRequest{
				Symbol:  symbol,
				Spot:    spotPrice,
				Outlook: outlook,
				Chain:   chain,
			}, chain, table)
			return app.renderStrategies(cmd, output, symbol, strategies, save)
		},
	}

	cmd.Flags().StringVar(&outlook, "outlook", "", "market outlook, e.g. bullish, bearish, neutral")
	cmd.Flags().StringVar(&spot, "spot", "", "current underlying price")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "chain and pricing snapshot file")
	cmd.Flags().BoolVar(&save, "save", false, "record the validated strategies in the journal")

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func (app *App) renderStrategies(cmd *cobra.Command, output *Output, symbol string, strategies []models.Strategy, save bool) error {
	result := strategyResult{Symbol: symbol, Strategies: strategies}

	if save && len(strategies) > 0 {
		if app.Store == nil {
			return errStoreUnavailable
		}
		ids, err := app.Store.SaveStrategies(commandContext(cmd), symbol, strategies)
		if err != nil {
			return err
		}
		result.JournalIDs = ids
	}

	if output.IsJSON() {
		return output.JSON(result)
	}

	if len(strategies) == 0 {
		output.Warning("No valid strategies for %s", symbol)
		output.Dim("Run with --debug to see why candidates were dropped.")
		return nil
	}

	for i, s := range strategies {
		printStrategy(output, i+1, s)
		output.Println()
	}
	if len(result.JournalIDs) > 0 {
		output.Success("✓ Saved %d strategies to the journal", len(result.JournalIDs))
	}
	return nil
}

// printStrategy renders one strategy as a summary box and a leg table.
func printStrategy(output *Output, n int, s models.Strategy) {
	summary := []string{
		"Direction:   " + output.Direction(s.Direction),
		"Net:         " + output.NetCost(s.NetCost, s.IsCredit),
		"Max Profit:  " + output.Figure(s.MaxProfit, ColorGreen),
		"Max Loss:    " + output.Figure(s.MaxLoss, ColorRed),
		"Breakeven:   " + s.Breakeven.String(),
		"Probability: " + FormatProbability(s.Probability),
		"Greeks:      " + FormatGreeks(s.Greeks),
	}
	if s.Calculation != "" {
		summary = append(summary, output.DimText(TruncateString(s.Calculation, 72)))
	}
	output.Box(fmt.Sprintf("%d. %s", n, s.Name), summary)

	table := NewTable(output, "Action", "Qty", "Expiration", "Strike", "Right", "Price", "Delta", "DTE")
	for _, leg := range s.Legs {
		price, delta, dte := "-", "-", "-"
		if leg.Pricing != nil {
			price = FormatPrice(leg.Pricing.Price)
			delta = FormatDelta(leg.Pricing.Delta)
			dte = fmt.Sprintf("%d", leg.Pricing.DaysToExpiration)
		}
		expiration := output.Correction(leg.Contract.Expiration, leg.Corrections.ExpirationCorrected, leg.Corrections.RequestedExpiration)
		if leg.Unvalidated {
			expiration = output.Yellow(leg.Contract.Expiration + "?")
		}
		table.AddRow(
			string(leg.Action),
			fmt.Sprintf("%d", leg.Quantity),
			expiration,
			output.Correction(FormatStrike(leg.Contract.Strike), leg.Corrections.StrikeCorrected, leg.Corrections.RequestedStrike),
			string(leg.Contract.Right),
			price,
			delta,
			dte,
		)
	}
	table.Render()

	if s.Rationale != "" {
		output.Dim("  %s", strings.TrimSpace(s.Rationale))
	}
}
