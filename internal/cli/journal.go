package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
	"option-strategist/internal/security"
	"option-strategist/internal/store"
)

// addJournalCommands adds strategy journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Strategy journal",
		Long:  "Review strategies saved with --save.",
	}

	cmd.AddCommand(newJournalListCmd(app))

	rootCmd.AddCommand(cmd)
}

func newJournalListCmd(app *App) *cobra.Command {
	var symbol, direction string
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled strategies, newest first",
		Example: `  strategist journal list --symbol SPY --since 168h
  strategist journal list --direction bullish --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errStoreUnavailable
			}

			filter := store.StrategyFilter{Limit: limit}
			if symbol != "" {
				clean, err := security.ValidateSymbol(symbol)
				if err != nil {
					return err
				}
				filter.Symbol = clean
			}
			if direction != "" {
				d, ok := models.ParseDirection(direction)
				if !ok {
					return apperrors.NewValidationError("direction", direction, "expected bullish, bearish or neutral")
				}
				filter.Direction = d
			}
			if since > 0 {
				filter.StartDate = time.Now().Add(-since)
			}

			records, err := app.Store.GetStrategies(commandContext(cmd), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if records == nil {
					records = []store.StrategyRecord{}
				}
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Info("No journaled strategies.")
				output.Dim("Tip: add --save to validate or suggest.")
				return nil
			}

			table := NewTable(output, "Saved", "Symbol", "Strategy", "Direction", "Max Profit", "Max Loss", "Legs")
			for _, rec := range records {
				legs := make([]string, 0, len(rec.Strategy.Legs))
				for _, leg := range rec.Strategy.Legs {
					legs = append(legs, FormatLeg(leg))
				}
				table.AddRow(
					FormatDateTime(rec.CreatedAt),
					rec.Symbol,
					TruncateString(rec.Strategy.Name, 24),
					output.Direction(rec.Strategy.Direction),
					output.Figure(rec.Strategy.MaxProfit, ColorGreen),
					output.Figure(rec.Strategy.MaxLoss, ColorRed),
					strings.Join(legs, " / "),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only this symbol")
	cmd.Flags().StringVar(&direction, "direction", "", "only this direction")
	cmd.Flags().DurationVar(&since, "since", 0, "only strategies saved within this window, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")

	return cmd
}
