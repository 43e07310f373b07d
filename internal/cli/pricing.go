package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"option-strategist/internal/models"
	"option-strategist/internal/security"
	"option-strategist/internal/store"
)

// addPricingCommands adds chain and pricing table commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Chain and pricing table management",
		Long:  "Import pricing snapshots into the local store and inspect them.",
	}

	cmd.AddCommand(newPricingImportCmd(app))
	cmd.AddCommand(newPricingShowCmd(app))
	cmd.AddCommand(newPricingSymbolsCmd(app))

	rootCmd.AddCommand(cmd)
}

func newPricingImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>...",
		Short: "Import pricing snapshots",
		Long: `Import one or more snapshot files into the store. Rows replace any
existing row with the same symbol, strike and expiration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := commandContext(cmd)
			if app.Store == nil {
				return errStoreUnavailable
			}

			imported := make(map[string]int, len(args))
			for _, path := range args {
				snap, err := store.LoadSnapshot(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := app.Store.SavePricingRows(ctx, snap.Symbol, snap.Rows); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				imported[snap.Symbol] += len(snap.Rows)
				app.Logger.Info().Str("symbol", snap.Symbol).Int("rows", len(snap.Rows)).Str("file", path).Msg("Pricing snapshot imported")
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"imported": imported})
			}
			for symbol, rows := range imported {
				output.Success("✓ %s: %d rows", symbol, rows)
			}
			return nil
		},
	}
}

func newPricingShowCmd(app *App) *cobra.Command {
	var snapshot, expiration string

	cmd := &cobra.Command{
		Use:   "show <symbol>",
		Short: "Show the chain and pricing table of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := commandContext(cmd)

			symbol, err := security.ValidateSymbol(args[0])
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

			rows := table.Rows()
			if expiration != "" {
				filtered := rows[:0]
				for _, r := range rows {
					if r.Expiration == expiration {
						filtered = append(filtered, r)
					}
				}
				rows = filtered
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"chain": chain,
					"rows":  rows,
				})
			}

			output.Bold("%s", symbol)
			output.Printf("  Strikes:     %d\n", len(chain.Strikes))
			output.Printf("  Expirations: %v\n", chain.Expirations)
			output.Println()

			printPricingRows(output, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshot, "snapshot", "", "chain and pricing snapshot file")
	cmd.Flags().StringVar(&expiration, "expiration", "", "only show rows of this expiration")

	return cmd
}

func printPricingRows(output *Output, rows []models.PricingRow) {
	if len(rows) == 0 {
		output.Info("No pricing rows.")
		return
	}
	table := NewTable(output, "Expiration", "DTE", "Strike", "Call", "Call Δ", "Put", "Put Δ")
	for _, r := range rows {
		table.AddRow(
			r.Expiration,
			fmt.Sprintf("%d", r.DaysToExpiration),
			FormatStrike(r.Strike),
			FormatPrice(r.Call.Price),
			FormatDelta(r.Call.Delta),
			FormatPrice(r.Put.Price),
			FormatDelta(r.Put.Delta),
		)
	}
	table.Render()
}

func newPricingSymbolsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List symbols with stored pricing",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errStoreUnavailable
			}
			symbols, err := app.Store.ListSymbols(commandContext(cmd))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string][]string{"symbols": symbols})
			}
			if len(symbols) == 0 {
				output.Info("No pricing imported yet.")
				output.Dim("Tip: strategist pricing import <snapshot.json>")
				return nil
			}
			for _, s := range symbols {
				output.Println(s)
			}
			return nil
		},
	}
}
