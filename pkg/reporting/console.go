package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantfisher/ashare-backtest/internal/analyzer"
	"github.com/quantfisher/ashare-backtest/internal/ledger"
)

// PrintRunConfig renders the run parameters before the backtest starts.
func PrintRunConfig(start, end string, initialCash, commissionRate, taxRate, orderCash float64) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s - %s", start, end)},
		{"Initial Cash", fmt.Sprintf("%.2f", initialCash)},
		{"Commission Rate", fmt.Sprintf("%.4f%%", commissionRate*100)},
		{"Sell Tax Rate", fmt.Sprintf("%.4f%%", taxRate*100)},
		{"Cash per Order", fmt.Sprintf("%.2f", orderCash)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()
}

// PrintSummary renders the analyzer summary after the run.
func PrintSummary(sum analyzer.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Final Assets", fmt.Sprintf("%.2f", sum.FinalAssets)},
		{"Total Return", fmt.Sprintf("%.2f%%", sum.TotalReturn)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", sum.MaxDrawdown)},
		{"Win Rate", fmt.Sprintf("%.2f%%", sum.WinRate)},
		{"Round Trips", len(sum.RoundTrips)},
		{"Total Trades", sum.TotalTrades},
		{"Total Commission", fmt.Sprintf("%.2f", sum.TotalCommission)},
		{"Total Tax", fmt.Sprintf("%.2f", sum.TotalTax)},
		{"Max Held Instruments", sum.MaxHeldCount},
	})
	t.Render()

	if len(sum.RoundTrips) > 0 {
		fmt.Println()
		rt := table.NewWriter()
		rt.SetOutputMirror(os.Stdout)
		rt.SetTitle("ROUND TRIPS")
		rt.SetStyle(table.StyleRounded)
		rt.AppendHeader(table.Row{"Code", "Buy Cost", "Sell Income", "Profit", "Return %"})
		for _, trip := range sum.RoundTrips {
			rt.AppendRow(table.Row{
				trip.Code,
				fmt.Sprintf("%.2f", trip.BuyCost),
				fmt.Sprintf("%.2f", trip.SellIncome),
				fmt.Sprintf("%.2f", trip.Profit),
				fmt.Sprintf("%.2f", trip.ReturnRate),
			})
		}
		rt.Render()
	}
	fmt.Println()
}

// PrintTransactions renders the transaction log, for verbose runs.
func PrintTransactions(transactions []ledger.Transaction) {
	if len(transactions) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRANSACTIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Code", "Side", "Price", "Volume", "Commission", "Tax"})
	for _, tx := range transactions {
		t.AppendRow(table.Row{
			tx.Time.Format("2006-01-02 15:04"),
			tx.Code,
			string(tx.Action),
			fmt.Sprintf("%.2f", tx.Price),
			fmt.Sprintf("%.0f", tx.Volume),
			fmt.Sprintf("%.2f", tx.Commission),
			fmt.Sprintf("%.2f", tx.Tax),
		})
	}
	t.Render()
	fmt.Println()
}
