package engine

import (
	"time"
)

const (
	DefaultInitialCapital = 10000.0
	DefaultSlippage       = 0.001  // 10 bps
	DefaultCommission     = 0.0006 // 6 bps per side of notional
	DefaultEquityStride   = 10

	// sizingSafetyFactor halves the sizing fraction on every entry.
	sizingSafetyFactor = 0.5

	ExitReasonSignal = "Signal"
)

// Trade is one round trip. Exit fields stay nil until the position closes.
type Trade struct {
	Direction  Direction  `json:"direction"`
	EntryPrice float64    `json:"entry_price"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryIndex int        `json:"entry_index"`
	Size       float64    `json:"size"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	ExitIndex  *int       `json:"exit_index,omitempty"`
	PnL        *float64   `json:"pnl,omitempty"`
	PnLPct     *float64   `json:"pnl_pct,omitempty"`
	ExitReason string     `json:"exit_reason,omitempty"`
}

// Closed reports whether the trade has been resolved.
func (t Trade) Closed() bool {
	return t.ExitPrice != nil && t.PnL != nil
}

// ProfitLoss returns the realised PnL, 0 while open.
func (t Trade) ProfitLoss() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}

// ProfitLossPct returns the realised PnL percentage, 0 while open.
func (t Trade) ProfitLossPct() float64 {
	if t.PnLPct == nil {
		return 0
	}
	return *t.PnLPct
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Index  int       `json:"timestamp"`
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Simulator replays signals against prices holding at most one position.
// A Simulator carries configuration only; every Simulate call starts fresh.
type Simulator struct {
	InitialCapital float64
	Slippage       float64
	Commission     float64
	EquityStride   int
	Start          time.Time
	Period         time.Duration
}

// NewSimulator returns a simulator with the default cost model.
func NewSimulator(initialCapital float64) Simulator {
	return Simulator{
		InitialCapital: initialCapital,
		Slippage:       DefaultSlippage,
		Commission:     DefaultCommission,
		EquityStride:   DefaultEquityStride,
		Period:         4 * time.Hour,
	}
}

func (s Simulator) timeAt(i int) time.Time {
	return s.Start.Add(time.Duration(i) * s.Period)
}

// Simulate walks prices and signals in index order. Entries are sized as a
// fraction of current equity (halved), slippage always works against the
// trader, and a round-trip commission is charged on close. The equity curve is
// sampled every EquityStride indices and is never empty.
func (s Simulator) Simulate(prices []float64, signals []Signal, sizingFraction float64) ([]Trade, []EquityPoint) {
	stride := s.EquityStride
	if stride <= 0 {
		stride = DefaultEquityStride
	}
	if sizingFraction < 0 {
		sizingFraction = 0
	}

	var (
		trades   []Trade
		curve    []EquityPoint
		open     *Trade
		equity   = s.InitialCapital
		nSignals = min(len(prices), len(signals))
	)

	for i := 0; i < nSignals; i++ {
		price := prices[i]

		switch signals[i] {
		case SignalLong, SignalShort:
			if open != nil {
				break
			}
			dir := DirectionLong
			entry := price * (1 + s.Slippage)
			if signals[i] == SignalShort {
				dir = DirectionShort
				entry = price * (1 - s.Slippage)
			}
			notional := equity * sizingFraction * sizingSafetyFactor
			size := 0.0
			if notional > 0 && entry > 0 {
				size = notional / entry
			}
			open = &Trade{
				Direction:  dir,
				EntryPrice: entry,
				EntryTime:  s.timeAt(i),
				EntryIndex: i,
				Size:       size,
			}

		case SignalClose:
			if open == nil {
				break
			}
			closed := s.close(*open, price, i)
			trades = append(trades, closed)
			equity += *closed.PnL
			open = nil
		}

		if i%stride == 0 {
			curve = append(curve, EquityPoint{Index: i, Time: s.timeAt(i), Equity: equity})
		}
	}

	if len(curve) == 0 {
		curve = append(curve, EquityPoint{Index: 0, Time: s.timeAt(0), Equity: equity})
	}
	return trades, curve
}

func (s Simulator) close(t Trade, price float64, i int) Trade {
	var exit, pnl, pnlPct float64
	if t.Direction == DirectionLong {
		exit = price * (1 - s.Slippage)
		pnl = (exit - t.EntryPrice) * t.Size
		pnlPct = (exit - t.EntryPrice) / t.EntryPrice * 100
	} else {
		exit = price * (1 + s.Slippage)
		pnl = (t.EntryPrice - exit) * t.Size
		pnlPct = (t.EntryPrice - exit) / t.EntryPrice * 100
	}
	pnl -= (t.EntryPrice + exit) * t.Size * s.Commission

	exitTime := s.timeAt(i)
	t.ExitPrice = &exit
	t.ExitTime = &exitTime
	t.ExitIndex = &i
	t.PnL = &pnl
	t.PnLPct = &pnlPct
	t.ExitReason = ExitReasonSignal
	return t
}
