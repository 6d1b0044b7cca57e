package main

import "flag"

// BacktestFlags holds all command line flags for the backtest command.
// Flags override values loaded from the environment.
type BacktestFlags struct {
	// Run range
	StartDate *string
	EndDate   *string

	// Account settings
	InitialCash    *float64
	CommissionRate *float64
	MinCommission  *float64
	TaxRate        *float64

	// Strategy parameters
	OrderCash   *float64
	DailyWindow *int
	MinPrice    *float64
	MaxPrice    *float64
	Pattern     *string

	// Data and output
	DataRoot    *string
	OutputFile  *string
	ConsoleOnly *bool
	Verbose     *bool
	EnvFile     *string

	// Monitoring
	Metrics     *bool
	MetricsPort *int

	// Help and version
	ShowVersion *bool
}

// NewBacktestFlags creates and registers all command line flags.
func NewBacktestFlags() *BacktestFlags {
	return &BacktestFlags{
		StartDate: flag.String("start", "", "Backtest start date (YYYY-MM-DD)"),
		EndDate:   flag.String("end", "", "Backtest end date (YYYY-MM-DD)"),

		InitialCash:    flag.Float64("cash", 0, "Initial cash (0 = from environment)"),
		CommissionRate: flag.Float64("commission", 0, "Commission rate (0 = from environment)"),
		MinCommission:  flag.Float64("min-commission", 0, "Minimum commission per order (0 = from environment)"),
		TaxRate:        flag.Float64("tax", 0, "Sell-side tax rate (0 = from environment)"),

		OrderCash:   flag.Float64("order-cash", 0, "Cash per buy order (0 = from environment)"),
		DailyWindow: flag.Int("daily-window", 0, "Trailing daily bars per instrument (0 = from environment)"),
		MinPrice:    flag.Float64("min-price", 0, "Candidate price band lower bound (0 = disabled)"),
		MaxPrice:    flag.Float64("max-price", 0, "Candidate price band upper bound (0 = disabled)"),
		Pattern:     flag.String("pattern", "first-board", "Candidate pattern (first-board, limit-board)"),

		DataRoot:    flag.String("data-root", "", "Data directory root (default from environment)"),
		OutputFile:  flag.String("output", "", "Result workbook path (default results/backtest_<start>_<end>.xlsx)"),
		ConsoleOnly: flag.Bool("console-only", false, "Skip the workbook export"),
		Verbose:     flag.Bool("verbose", false, "Print the transaction log"),
		EnvFile:     flag.String("env", ".env", "Environment file"),

		Metrics:     flag.Bool("metrics", false, "Expose prometheus metrics during the run"),
		MetricsPort: flag.Int("metrics-port", 0, "Prometheus port (0 = from environment)"),

		ShowVersion: flag.Bool("version", false, "Show version"),
	}
}
