package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/quantfisher/ashare-backtest/internal/analyzer"
	"github.com/quantfisher/ashare-backtest/internal/ledger"
	"github.com/quantfisher/ashare-backtest/internal/logger"
	"github.com/quantfisher/ashare-backtest/internal/monitoring"
	"github.com/quantfisher/ashare-backtest/internal/pattern"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// Config tunes a backtest run.
type Config struct {
	StartDate time.Time
	EndDate   time.Time

	// DailyWindow is how many trailing daily bars to load per instrument.
	DailyWindow int
	// AvgVolumeWindow is the trailing window for the cached average volume.
	AvgVolumeWindow int
	// OrderCash is the cash allocated per buy order, rounded down to lots.
	OrderCash float64
	// LotSize is the exchange board lot, 100 shares.
	LotSize float64
	// Tolerance is the price tolerance used by the default signal rules.
	Tolerance float64
	// MinPrice/MaxPrice optionally band-filter candidates on their last
	// close. Zero values disable the band.
	MinPrice float64
	MaxPrice float64
	// Metrics enables prometheus instrumentation of the run.
	Metrics bool
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		DailyWindow:     60,
		AvgVolumeWindow: 5,
		OrderCash:       50000,
		LotSize:         100,
		Tolerance:       0.01,
	}
}

// CandidateFilter screens an instrument's daily window at pre-open.
type CandidateFilter func(code string, daily types.BarSeries) (bool, error)

// Result is the outcome of a completed run.
type Result struct {
	Summary      analyzer.Summary
	Transactions []ledger.Transaction
	EquityCurve  []ledger.AccountSnapshot
}

// Engine drives the four-phase session loop over the trading calendar.
// It owns the ledger exclusively; the whole run is single-threaded, and
// the strict session and minute ordering is what rules out look-ahead.
type Engine struct {
	cfg      Config
	calendar CalendarProvider
	bars     BarProvider
	universe UniverseProvider
	ledger   *ledger.Ledger
	log      *logger.Logger

	filter   CandidateFilter
	buyRule  BuyRule
	sellRule SellRule
}

// New wires an engine from its collaborators. All providers are required;
// log may be nil for silent runs.
func New(cfg Config, calendar CalendarProvider, bars BarProvider, universe UniverseProvider,
	led *ledger.Ledger, log *logger.Logger) *Engine {
	e := &Engine{
		cfg:      cfg,
		calendar: calendar,
		bars:     bars,
		universe: universe,
		ledger:   led,
		log:      log,
	}
	opts := pattern.DefaultConsolidationOptions()
	e.filter = func(code string, daily types.BarSeries) (bool, error) {
		return pattern.FirstBoardConsolidation(code, daily, opts)
	}
	e.buyRule = DefaultBuyRule(cfg.Tolerance)
	e.sellRule = DefaultSellRule(cfg.Tolerance, nil)
	return e
}

// SetCandidateFilter replaces the pre-open screening pattern.
func (e *Engine) SetCandidateFilter(f CandidateFilter) { e.filter = f }

// SetBuyRule replaces the intraday buy-signal evaluator.
func (e *Engine) SetBuyRule(r BuyRule) { e.buyRule = r }

// SetSellRule replaces the intraday sell-signal evaluator.
func (e *Engine) SetSellRule(r SellRule) { e.sellRule = r }

// Run executes the full backtest and returns the analyzed result.
// Provider faults abort the run; order rejections do not.
func (e *Engine) Run() (*Result, error) {
	days, err := e.calendar.TradingDays(e.cfg.StartDate, e.cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("trading calendar: %w", err)
	}
	if len(days) == 0 {
		return nil, errors.New("no trading days in range")
	}

	for _, day := range days {
		if err := e.runSession(day); err != nil {
			return nil, fmt.Errorf("session %s: %w", day.Format("2006-01-02"), err)
		}
	}

	transactions := e.ledger.Transactions()
	curve := e.ledger.EquityCurve()
	return &Result{
		Summary:      analyzer.Analyze(transactions, curve),
		Transactions: transactions,
		EquityCurve:  curve,
	}, nil
}

// runSession executes the pre-open, intraday, and post-close phases of one
// trading session.
func (e *Engine) runSession(day time.Time) error {
	// Phase 1: pre-open.
	e.ledger.UnlockAll()
	e.ledger.PurgeEmpty()

	holdings := e.ledger.HeldCodes()
	sort.Strings(holdings)

	candidates, daily, err := e.selectCandidates(day, holdings)
	if err != nil {
		return err
	}
	e.logInfo("pre-open %s: %d candidates, %d holdings",
		day.Format("2006-01-02"), len(candidates), len(holdings))

	if len(candidates) == 0 && len(holdings) == 0 {
		// Nothing to do intraday; the snapshot still carries the prior
		// valuation forward so the equity curve stays per-session.
		e.postClose(day, nil)
		return nil
	}

	caches, err := e.buildCaches(day, candidates, holdings, daily)
	if err != nil {
		return err
	}

	// Phase 2: intraday.
	active := append(append([]string{}, candidates...), holdings...)
	minuteBars, err := e.bars.MinuteBars(active, day)
	if err != nil {
		return fmt.Errorf("minute bars: %w", err)
	}
	e.runIntraday(candidates, holdings, caches, minuteBars)

	// Phase 3: post-close.
	closes := make(map[string]float64, len(minuteBars))
	for code, series := range minuteBars {
		if last, ok := series.Latest(); ok {
			closes[code] = last.Close
		}
	}
	e.postClose(day, closes)
	return nil
}

// selectCandidates screens the tradable universe with the candidate
// filter, excluding held names and applying the optional price band.
// It returns the candidate codes and the daily windows it loaded.
func (e *Engine) selectCandidates(day time.Time, holdings []string) ([]string, map[string]types.BarSeries, error) {
	codes, err := e.universe.TradableCodes()
	if err != nil {
		return nil, nil, fmt.Errorf("universe: %w", err)
	}
	sort.Strings(codes)

	daily, err := e.bars.DailyBars(codes, day, e.cfg.DailyWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("daily bars: %w", err)
	}

	held := make(map[string]bool, len(holdings))
	for _, code := range holdings {
		held[code] = true
	}

	var candidates []string
	for _, code := range codes {
		if held[code] {
			continue
		}
		series := daily[code]
		if series.Len() == 0 {
			continue
		}
		if !e.inPriceBand(series[series.Len()-1].Close) {
			continue
		}
		ok, err := e.filter(code, series)
		if err != nil {
			// Data-quality fault in one instrument's window: surfaced,
			// the instrument is dropped, the run continues.
			e.logError("candidate filter %s: %v", code, err)
			continue
		}
		if ok {
			candidates = append(candidates, code)
		}
	}
	return candidates, daily, nil
}

func (e *Engine) inPriceBand(price float64) bool {
	if e.cfg.MinPrice > 0 && price < e.cfg.MinPrice {
		return false
	}
	if e.cfg.MaxPrice > 0 && price > e.cfg.MaxPrice {
		return false
	}
	return true
}

// buildCaches derives the session cache for every candidate and holding,
// reusing the daily windows already loaded for screening and fetching the
// rest.
func (e *Engine) buildCaches(day time.Time, candidates, holdings []string,
	daily map[string]types.BarSeries) (map[string]*InstrumentCache, error) {

	var missing []string
	for _, code := range holdings {
		if _, ok := daily[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		extra, err := e.bars.DailyBars(missing, day, e.cfg.DailyWindow)
		if err != nil {
			return nil, fmt.Errorf("daily bars for holdings: %w", err)
		}
		for code, series := range extra {
			daily[code] = series
		}
	}

	caches := make(map[string]*InstrumentCache)
	for _, code := range append(append([]string{}, candidates...), holdings...) {
		cache, err := buildCache(code, daily[code], e.cfg.AvgVolumeWindow)
		if err != nil {
			return nil, fmt.Errorf("cache %s: %w", code, err)
		}
		if date, ok := e.ledger.BuildDate(code); ok {
			cache.BuildDate = date
			cache.HasBuildDate = true
		}
		caches[code] = cache
	}
	return caches, nil
}

// runIntraday walks the minute snapshots in time order and evaluates the
// signal rules against the cached pre-open indicators plus the bars of the
// current snapshot only.
func (e *Engine) runIntraday(candidates, holdings []string,
	caches map[string]*InstrumentCache, minuteBars map[string]types.BarSeries) {

	buyable := make(map[string]bool, len(candidates))
	for _, code := range candidates {
		buyable[code] = true
	}
	sellable := make(map[string]bool, len(holdings))
	for _, code := range holdings {
		sellable[code] = true
	}

	for _, snap := range BuildMinuteSnapshots(minuteBars) {
		for _, code := range sortedCodes(snap.Bars) {
			cache := caches[code]
			if cache == nil {
				continue
			}
			switch {
			case buyable[code]:
				if sig := e.buyRule(cache, snap.Bars[code]); sig != nil {
					if e.submitBuy(sig) {
						// One buy per instrument per session; the new
						// position stays locked until tomorrow.
						delete(buyable, code)
					}
				}
			case sellable[code]:
				pos, ok := e.ledger.Position(code)
				if !ok {
					continue
				}
				if sig := e.sellRule(cache, snap.Bars[code], pos); sig != nil {
					if e.submitSell(sig, pos) {
						delete(sellable, code)
					}
				}
			}
		}
	}
}

// submitBuy sizes the order from the configured cash per trade and submits
// it. Rejections are logged and non-fatal.
func (e *Engine) submitBuy(sig *Signal) bool {
	lots := int(e.cfg.OrderCash / (sig.Price * e.cfg.LotSize))
	volume := float64(lots) * e.cfg.LotSize
	if volume <= 0 {
		return false
	}
	order := ledger.Order{
		Code:   sig.Code,
		Action: ledger.ActionBuy,
		Price:  sig.Price,
		Volume: volume,
		Time:   sig.Time,
		Note:   sig.Reason,
	}
	if err := e.ledger.Buy(order); err != nil {
		e.logTrade("buy rejected %s: %v", sig.Code, err)
		if e.cfg.Metrics {
			monitoring.RecordRejection("insufficient_cash")
		}
		return false
	}
	e.logTrade("buy %s: %.0f @ %.2f (%s)", sig.Code, volume, sig.Price, sig.Reason)
	if e.cfg.Metrics {
		monitoring.RecordOrder(sig.Code, string(ledger.ActionBuy))
	}
	return true
}

// submitSell exits the full available volume. Rejections are logged and
// non-fatal.
func (e *Engine) submitSell(sig *Signal, pos ledger.Position) bool {
	volume := pos.AvailableVolume()
	if volume <= 0 {
		return false
	}
	order := ledger.Order{
		Code:   sig.Code,
		Action: ledger.ActionSell,
		Price:  sig.Price,
		Volume: volume,
		Time:   sig.Time,
		Note:   sig.Reason,
	}
	if err := e.ledger.Sell(order); err != nil {
		e.logTrade("sell rejected %s: %v", sig.Code, err)
		if e.cfg.Metrics {
			monitoring.RecordRejection("insufficient_volume")
		}
		return false
	}
	e.logTrade("sell %s: %.0f @ %.2f (%s)", sig.Code, volume, sig.Price, sig.Reason)
	if e.cfg.Metrics {
		monitoring.RecordOrder(sig.Code, string(ledger.ActionSell))
	}
	return true
}

// postClose marks positions to market from the final minute closes and
// appends the session's equity-curve snapshot.
func (e *Engine) postClose(day time.Time, closes map[string]float64) {
	if len(closes) > 0 {
		e.ledger.MarkToMarket(closes)
	}
	snap := e.ledger.TakeSnapshot(day)
	if e.log != nil {
		e.log.LogSessionStatus(day, snap.HeldCount, snap.Cash, snap.PositionValue, snap.TotalAssets)
	}
	if e.cfg.Metrics {
		monitoring.RecordSession(snap.TotalAssets, snap.HeldCount)
	}
}

func (e *Engine) logInfo(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Info(format, args...)
	}
}

func (e *Engine) logError(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Error(format, args...)
	}
}

func (e *Engine) logTrade(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Trade(format, args...)
	}
}
