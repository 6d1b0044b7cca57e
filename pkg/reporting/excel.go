package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/quantfisher/ashare-backtest/internal/analyzer"
	"github.com/quantfisher/ashare-backtest/internal/ledger"
)

// ExcelReporter writes the run's transaction log, equity curve, and
// summary statistics into one workbook.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteWorkbook writes the full result workbook to path, creating parent
// directories as needed.
func (r *ExcelReporter) WriteWorkbook(transactions []ledger.Transaction,
	curve []ledger.AccountSnapshot, sum analyzer.Summary, path string) error {

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const txSheet = "Transactions"
	const equitySheet = "Equity Curve"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), txSheet)
	fx.NewSheet(equitySheet)
	fx.NewSheet(summarySheet)

	header, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := r.writeTransactions(fx, txSheet, transactions, header); err != nil {
		return err
	}
	if err := r.writeEquityCurve(fx, equitySheet, curve, header); err != nil {
		return err
	}
	if err := r.writeSummary(fx, summarySheet, sum, header); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeTransactions(fx *excelize.File, sheet string,
	transactions []ledger.Transaction, headerStyle int) error {

	headers := []string{"Time", "Code", "Side", "Price", "Volume", "Commission", "Tax", "Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	fx.SetRowStyle(sheet, 1, 1, headerStyle)

	for i, tx := range transactions {
		row := i + 2
		values := []interface{}{
			tx.Time.Format("2006-01-02 15:04:05"),
			tx.Code,
			string(tx.Action),
			tx.Price,
			tx.Volume,
			tx.Commission,
			tx.Tax,
			tx.Note,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			fx.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

func (r *ExcelReporter) writeEquityCurve(fx *excelize.File, sheet string,
	curve []ledger.AccountSnapshot, headerStyle int) error {

	headers := []string{"Trade Date", "Held Count", "Position Cost", "Position Value", "Cash", "Total Assets"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	fx.SetRowStyle(sheet, 1, 1, headerStyle)

	for i, snap := range curve {
		row := i + 2
		values := []interface{}{
			snap.TradeDate.Format("2006-01-02"),
			snap.HeldCount,
			snap.PositionCost,
			snap.PositionValue,
			snap.Cash,
			snap.TotalAssets,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			fx.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

func (r *ExcelReporter) writeSummary(fx *excelize.File, sheet string,
	sum analyzer.Summary, headerStyle int) error {

	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetRowStyle(sheet, 1, 1, headerStyle)

	rows := [][2]interface{}{
		{"Final Assets", sum.FinalAssets},
		{"Total Return %", sum.TotalReturn},
		{"Max Drawdown %", sum.MaxDrawdown},
		{"Win Rate %", sum.WinRate},
		{"Round Trips", len(sum.RoundTrips)},
		{"Total Trades", sum.TotalTrades},
		{"Total Commission", sum.TotalCommission},
		{"Total Tax", sum.TotalTax},
		{"Max Held Instruments", sum.MaxHeldCount},
	}
	for i, row := range rows {
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), row[0])
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row[1])
	}
	return nil
}
