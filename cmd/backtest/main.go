package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantfisher/ashare-backtest/internal/config"
	"github.com/quantfisher/ashare-backtest/internal/engine"
	"github.com/quantfisher/ashare-backtest/internal/ledger"
	"github.com/quantfisher/ashare-backtest/internal/logger"
	"github.com/quantfisher/ashare-backtest/internal/monitoring"
	"github.com/quantfisher/ashare-backtest/internal/pattern"
	"github.com/quantfisher/ashare-backtest/pkg/data"
	"github.com/quantfisher/ashare-backtest/pkg/reporting"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

const (
	AppName    = "A-Share Backtest"
	AppVersion = "1.0.0"

	dateFormat = "2006-01-02"
)

func main() {
	flags := NewBacktestFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	if err := godotenv.Load(*flags.EnvFile); err != nil {
		log.Printf("could not load %s (%v), using process environment", *flags.EnvFile, err)
	}
	cfg := config.Load()
	applyFlagOverrides(cfg, flags)

	start, end, err := parseRange(*flags.StartDate, *flags.EndDate)
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	runLog, err := logger.NewLogger("backtest")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer runLog.Close()

	if cfg.Monitoring.Enabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort)
	}

	provider := data.NewCSVProvider(cfg.Data.Root)

	led := ledger.New(ledger.Config{
		InitialCash:    cfg.Account.InitialCash,
		CommissionRate: cfg.Account.CommissionRate,
		MinCommission:  cfg.Account.MinCommission,
		TaxRate:        cfg.Account.TaxRate,
	})

	engCfg := engine.DefaultConfig()
	engCfg.StartDate = start
	engCfg.EndDate = end
	engCfg.DailyWindow = cfg.Strategy.DailyWindow
	engCfg.OrderCash = cfg.Strategy.OrderCash
	engCfg.MinPrice = cfg.Strategy.MinPrice
	engCfg.MaxPrice = cfg.Strategy.MaxPrice
	engCfg.Metrics = cfg.Monitoring.Enabled

	eng := engine.New(engCfg, provider, provider, provider, led, runLog)
	if err := applyPattern(eng, *flags.Pattern); err != nil {
		log.Fatalf("%v", err)
	}

	reporting.PrintRunConfig(start.Format(dateFormat), end.Format(dateFormat),
		cfg.Account.InitialCash, cfg.Account.CommissionRate, cfg.Account.TaxRate,
		cfg.Strategy.OrderCash)

	began := time.Now()
	result, err := eng.Run()
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	fmt.Printf("Run completed in %s, %d sessions\n\n", time.Since(began).Round(time.Millisecond),
		len(result.EquityCurve))

	reporting.PrintSummary(result.Summary)
	if *flags.Verbose {
		reporting.PrintTransactions(result.Transactions)
	}

	if !*flags.ConsoleOnly {
		path := *flags.OutputFile
		if path == "" {
			path = filepath.Join("results", fmt.Sprintf("backtest_%s_%s.xlsx",
				start.Format("20060102"), end.Format("20060102")))
		}
		reporter := reporting.NewExcelReporter()
		if err := reporter.WriteWorkbook(result.Transactions, result.EquityCurve,
			result.Summary, path); err != nil {
			log.Fatalf("export: %v", err)
		}
		fmt.Printf("Results saved to: %s\n", path)
	}
}

func applyFlagOverrides(cfg *config.Config, flags *BacktestFlags) {
	if *flags.InitialCash > 0 {
		cfg.Account.InitialCash = *flags.InitialCash
	}
	if *flags.CommissionRate > 0 {
		cfg.Account.CommissionRate = *flags.CommissionRate
	}
	if *flags.MinCommission > 0 {
		cfg.Account.MinCommission = *flags.MinCommission
	}
	if *flags.TaxRate > 0 {
		cfg.Account.TaxRate = *flags.TaxRate
	}
	if *flags.OrderCash > 0 {
		cfg.Strategy.OrderCash = *flags.OrderCash
	}
	if *flags.DailyWindow > 0 {
		cfg.Strategy.DailyWindow = *flags.DailyWindow
	}
	if *flags.MinPrice > 0 {
		cfg.Strategy.MinPrice = *flags.MinPrice
	}
	if *flags.MaxPrice > 0 {
		cfg.Strategy.MaxPrice = *flags.MaxPrice
	}
	if *flags.DataRoot != "" {
		cfg.Data.Root = *flags.DataRoot
	}
	if *flags.Metrics {
		cfg.Monitoring.Enabled = true
	}
	if *flags.MetricsPort > 0 {
		cfg.Monitoring.PrometheusPort = *flags.MetricsPort
	}
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both -start and -end are required")
	}
	start, err := time.Parse(dateFormat, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse(dateFormat, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return start, end, nil
}

func applyPattern(eng *engine.Engine, name string) error {
	opts := pattern.DefaultConsolidationOptions()
	switch name {
	case "first-board":
		eng.SetCandidateFilter(func(code string, daily types.BarSeries) (bool, error) {
			return pattern.FirstBoardConsolidation(code, daily, opts)
		})
	case "limit-board":
		eng.SetCandidateFilter(func(code string, daily types.BarSeries) (bool, error) {
			return pattern.LimitBoardConsolidation(code, daily, opts)
		})
	default:
		return fmt.Errorf("unknown pattern %q (use first-board or limit-board)", name)
	}
	return nil
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		log.Printf("metrics server: %v", err)
	}
}
