package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Action is the side of an order or transaction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Expected business rejections. Orders that hit these leave cash and
// position state untouched; the simulation continues.
var (
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientVolume = errors.New("insufficient available volume")
)

// Config carries the friction parameters of the simulated account.
type Config struct {
	InitialCash    float64
	CommissionRate float64
	MinCommission  float64
	TaxRate        float64 // sell-side only
}

// Order is a request to trade. Volume is in shares.
type Order struct {
	Code   string
	Action Action
	Price  float64
	Volume float64
	Time   time.Time
	Note   string
}

// Position is the per-instrument holding state. LockedVolume tracks shares
// bought in the current session, which are not sellable until the next
// session (T+1).
type Position struct {
	CostPrice    float64
	Volume       float64
	LockedVolume float64
	LastPrice    float64
}

// AvailableVolume is the sellable part of the position.
func (p Position) AvailableVolume() float64 {
	return p.Volume - p.LockedVolume
}

// Transaction is an immutable record of one executed order.
type Transaction struct {
	Code       string
	Action     Action
	Price      float64
	Volume     float64
	Commission float64
	Tax        float64
	Time       time.Time
	Note       string
}

// AccountSnapshot is one point on the equity curve, taken after close.
type AccountSnapshot struct {
	TradeDate     time.Time
	HeldCount     int
	PositionCost  float64
	PositionValue float64
	Cash          float64
	TotalAssets   float64
}

// Ledger is the authoritative bookkeeping of cash and positions. It is the
// only component that mutates account state, and every mutation is atomic
// with respect to a single order.
type Ledger struct {
	cfg          Config
	cash         float64
	positions    map[string]*Position
	transactions []Transaction
	equityCurve  []AccountSnapshot
}

// New creates a ledger funded with the configured initial cash.
func New(cfg Config) *Ledger {
	return &Ledger{
		cfg:       cfg,
		cash:      cfg.InitialCash,
		positions: make(map[string]*Position),
	}
}

// Buy executes a buy order: debits notional plus commission, folds the
// fill into the volume-weighted cost price, and locks the bought shares
// for the rest of the session. The lock overwrites any prior lock; at most
// one buy per instrument per session is assumed.
func (l *Ledger) Buy(order Order) error {
	notional := order.Price * order.Volume
	commission := l.commission(notional)
	debit := notional + commission
	if l.cash < debit {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, debit, l.cash)
	}

	pos, ok := l.positions[order.Code]
	if !ok {
		pos = &Position{}
		l.positions[order.Code] = pos
	}
	total := pos.Volume + order.Volume
	pos.CostPrice = (pos.CostPrice*pos.Volume + order.Price*order.Volume) / total
	pos.Volume = total
	pos.LockedVolume = order.Volume
	pos.LastPrice = order.Price

	l.cash -= debit
	l.record(ActionBuy, order, commission, 0)
	return nil
}

// Sell executes a sell order against the available (unlocked) volume.
// Cost price is not recomputed on a sell; only the volume shrinks. The
// proceeds net of commission and sell-side tax are credited to cash.
func (l *Ledger) Sell(order Order) error {
	pos, ok := l.positions[order.Code]
	if !ok || pos.AvailableVolume() < order.Volume {
		avail := 0.0
		if ok {
			avail = pos.AvailableVolume()
		}
		return fmt.Errorf("%w: want %.0f, available %.0f", ErrInsufficientVolume, order.Volume, avail)
	}

	notional := order.Price * order.Volume
	commission := l.commission(notional)
	tax := notional * l.cfg.TaxRate

	pos.Volume -= order.Volume
	pos.LastPrice = order.Price

	l.cash += notional - commission - tax
	l.record(ActionSell, order, commission, tax)
	return nil
}

// UnlockAll clears every T+1 lock. Called once per session at pre-open so
// yesterday's purchases become sellable.
func (l *Ledger) UnlockAll() {
	for _, pos := range l.positions {
		pos.LockedVolume = 0
	}
}

// PurgeEmpty drops fully exited positions. Called once per session at
// pre-open; a purged instrument has no build date anymore.
func (l *Ledger) PurgeEmpty() {
	for code, pos := range l.positions {
		if pos.Volume == 0 {
			delete(l.positions, code)
		}
	}
}

// MarkToMarket updates the last price of held instruments from the latest
// available prices. Valuation changes; cash and cost basis do not.
func (l *Ledger) MarkToMarket(prices map[string]float64) {
	for code, pos := range l.positions {
		if price, ok := prices[code]; ok {
			pos.LastPrice = price
		}
	}
}

// BuildDate returns the date of the most recent buy of a still-held
// instrument, scanning the transaction log newest-first. ok is false when
// the instrument is not held or no buy exists.
func (l *Ledger) BuildDate(code string) (time.Time, bool) {
	pos, held := l.positions[code]
	if !held || pos.Volume == 0 {
		return time.Time{}, false
	}
	for i := len(l.transactions) - 1; i >= 0; i-- {
		tx := l.transactions[i]
		if tx.Code == code && tx.Action == ActionBuy {
			return tx.Time, true
		}
	}
	return time.Time{}, false
}

// Position returns a copy of the instrument's position state.
func (l *Ledger) Position(code string) (Position, bool) {
	pos, ok := l.positions[code]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// HeldCodes lists the instruments currently held with nonzero volume.
func (l *Ledger) HeldCodes() []string {
	codes := make([]string, 0, len(l.positions))
	for code, pos := range l.positions {
		if pos.Volume > 0 {
			codes = append(codes, code)
		}
	}
	return codes
}

// Cash returns the available cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// PositionValue is the marked value of all holdings.
func (l *Ledger) PositionValue() float64 {
	total := 0.0
	for _, pos := range l.positions {
		total += pos.LastPrice * pos.Volume
	}
	return total
}

// PositionCost is the cost basis of all holdings.
func (l *Ledger) PositionCost() float64 {
	total := 0.0
	for _, pos := range l.positions {
		total += pos.CostPrice * pos.Volume
	}
	return total
}

// TotalAssets is cash plus marked position value.
func (l *Ledger) TotalAssets() float64 {
	return l.cash + l.PositionValue()
}

// TotalProfitRate is the account's return relative to the initial cash.
func (l *Ledger) TotalProfitRate() float64 {
	if l.cfg.InitialCash == 0 {
		return 0
	}
	return l.TotalAssets()/l.cfg.InitialCash - 1
}

// Transactions returns a copy of the append-only transaction log.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// TakeSnapshot appends one equity-curve point for the trading session.
func (l *Ledger) TakeSnapshot(tradeDate time.Time) AccountSnapshot {
	held := 0
	for _, pos := range l.positions {
		if pos.Volume > 0 {
			held++
		}
	}
	snap := AccountSnapshot{
		TradeDate:     tradeDate,
		HeldCount:     held,
		PositionCost:  l.PositionCost(),
		PositionValue: l.PositionValue(),
		Cash:          l.cash,
		TotalAssets:   l.TotalAssets(),
	}
	l.equityCurve = append(l.equityCurve, snap)
	return snap
}

// EquityCurve returns a copy of the account snapshots in session order.
func (l *Ledger) EquityCurve() []AccountSnapshot {
	out := make([]AccountSnapshot, len(l.equityCurve))
	copy(out, l.equityCurve)
	return out
}

func (l *Ledger) commission(notional float64) float64 {
	c := notional * l.cfg.CommissionRate
	if c < l.cfg.MinCommission {
		c = l.cfg.MinCommission
	}
	return c
}

// record appends a transaction for the executed side. The side comes from
// the executing method, not the order, so a mislabeled order cannot put a
// wrong action in the log.
func (l *Ledger) record(action Action, order Order, commission, tax float64) {
	l.transactions = append(l.transactions, Transaction{
		Code:       order.Code,
		Action:     action,
		Price:      order.Price,
		Volume:     order.Volume,
		Commission: commission,
		Tax:        tax,
		Time:       order.Time,
		Note:       order.Note,
	})
}
