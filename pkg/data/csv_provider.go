package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quantfisher/ashare-backtest/internal/market"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

const (
	dailyDateFormat  = "2006-01-02"
	minuteDateFormat = "2006-01-02 15:04:05"
)

// CSVProvider serves the trading calendar, bar data, and tradable universe
// from a directory tree of CSV files:
//
//	<root>/calendar.csv                one session date per line
//	<root>/universe.csv                optional, one code per line
//	<root>/daily/<code>.csv            daily bars, full history
//	<root>/minute/<yyyymmdd>/<code>.csv  minute bars of one session
//
// Bar rows are timestamp,open,high,low,close,prev_close,volume with a
// header line. Daily series are cached in memory after the first load.
type CSVProvider struct {
	root    string
	cache   map[string]types.BarSeries
	cacheMu sync.RWMutex
}

// NewCSVProvider creates a provider rooted at the given data directory.
func NewCSVProvider(root string) *CSVProvider {
	return &CSVProvider{
		root:  root,
		cache: make(map[string]types.BarSeries),
	}
}

// TradingDays reads calendar.csv and returns the session dates inside the
// range, ascending.
func (p *CSVProvider) TradingDays(start, end time.Time) ([]time.Time, error) {
	file, err := os.Open(filepath.Join(p.root, "calendar.csv"))
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer file.Close()

	var days []time.Time
	reader := csv.NewReader(file)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read calendar: %w", err)
		}
		if len(record) == 0 || record[0] == "date" {
			continue
		}
		day, err := time.Parse(dailyDateFormat, record[0])
		if err != nil {
			return nil, fmt.Errorf("calendar date %q: %w", record[0], err)
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// DailyBars returns up to count daily bars per instrument, all strictly
// before the session date. Instruments without a data file are omitted.
func (p *CSVProvider) DailyBars(codes []string, session time.Time, count int) (map[string]types.BarSeries, error) {
	out := make(map[string]types.BarSeries, len(codes))
	for _, code := range codes {
		series, err := p.loadDaily(code)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		window := series.Through(session.Add(-time.Nanosecond)).Last(count)
		if window.Len() > 0 {
			out[code] = window
		}
	}
	return out, nil
}

// MinuteBars returns the minute bars of one session per instrument.
// Instruments that did not trade that session are omitted.
func (p *CSVProvider) MinuteBars(codes []string, session time.Time) (map[string]types.BarSeries, error) {
	dir := filepath.Join(p.root, "minute", session.Format("20060102"))
	out := make(map[string]types.BarSeries, len(codes))
	for _, code := range codes {
		series, err := p.loadBars(filepath.Join(dir, code+".csv"), minuteDateFormat)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if series.Len() > 0 {
			out[code] = series
		}
	}
	return out, nil
}

// TradableCodes returns the universe: universe.csv when present, otherwise
// every instrument with a daily data file, filtered to main-board names.
func (p *CSVProvider) TradableCodes() ([]string, error) {
	if codes, err := p.readUniverseFile(); err == nil {
		return market.MainBoardOnly(codes), nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(p.root, "daily"))
	if err != nil {
		return nil, fmt.Errorf("list daily data: %w", err)
	}
	var codes []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".csv") {
			codes = append(codes, strings.TrimSuffix(name, ".csv"))
		}
	}
	sort.Strings(codes)
	return market.MainBoardOnly(codes), nil
}

func (p *CSVProvider) readUniverseFile() ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(p.root, "universe.csv"))
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, line := range strings.Split(string(raw), "\n") {
		code := strings.TrimSpace(line)
		if code != "" && code != "code" {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (p *CSVProvider) loadDaily(code string) (types.BarSeries, error) {
	p.cacheMu.RLock()
	cached, ok := p.cache[code]
	p.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	series, err := p.loadBars(filepath.Join(p.root, "daily", code+".csv"), dailyDateFormat)
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("daily series %s: %w", code, err)
	}

	p.cacheMu.Lock()
	p.cache[code] = series
	p.cacheMu.Unlock()
	return series, nil
}

func (p *CSVProvider) loadBars(path, dateFormat string) (types.BarSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return types.BarSeries{}, nil
		}
		return nil, err
	}

	var series types.BarSeries
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		line++
		if len(record) < 7 {
			return nil, fmt.Errorf("%s line %d: expected 7 columns, got %d", path, line, len(record))
		}

		timestamp, err := time.Parse(dateFormat, record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: timestamp: %w", path, line, err)
		}
		fields := make([]float64, 6)
		for i := 1; i < 7; i++ {
			fields[i-1], err = strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: column %d: %w", path, line, i, err)
			}
		}
		series = append(series, types.Bar{
			Timestamp: timestamp,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			PrevClose: fields[4],
			Volume:    fields[5],
		})
	}
	return series, nil
}
