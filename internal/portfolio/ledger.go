package portfolio

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pattern-lab/formation-trading/internal/costs"
	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// OpenOrder describes a proposed position entry.
type OpenOrder struct {
	Instrument string
	Quantity   int64
	Price      float64
	StopLoss   float64
	Target     float64
	Date       time.Time
	Reason     types.Reason
}

// Ledger owns the cash balance, open positions, trade log and daily
// equity snapshots of one simulation run. All mutating operations are
// serialized; the invariant errors it raises indicate logic bugs in
// the caller, not recoverable conditions.
type Ledger struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]types.Position
	// entryFills holds the exact decimal fill of every open position.
	// Positions carry a float64 entry price for reporting; conservation
	// arithmetic must use these to stay exact.
	entryFills map[string]decimal.Decimal
	closed     []types.Position
	trades     []types.Trade
	snapshots  []types.Snapshot

	// Conservation accumulators. grossRealized is (fill - entry) *
	// quantity before costs; costsPaid is every charge ever taken.
	grossRealized decimal.Decimal
	costsPaid     decimal.Decimal

	closedOutcomes []closedOutcome

	costModel costs.Model
	logger    *logger.Logger
	mu        sync.Mutex
}

type closedOutcome struct {
	pnl float64
	pct float64
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(initialCapital float64, costModel costs.Model, log *logger.Logger) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %f", initialCapital)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	capital := decimal.NewFromFloat(initialCapital)

	return &Ledger{
		initialCapital: capital,
		cash:           capital,
		positions:      make(map[string]types.Position),
		entryFills:     make(map[string]decimal.Decimal),
		costModel:      costModel,
		logger:         log,
	}, nil
}

// Open fills a buy order and creates the position. It fails with an
// invariant violation if the instrument already has an open position
// or if cash cannot cover the filled notional plus costs.
func (l *Ledger) Open(order OpenOrder) (types.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[order.Instrument]; exists {
		return types.Trade{}, errors.NewInvariantViolation(errors.ErrCodeDoubleOpen,
			"attempted second open for "+order.Instrument, l.stateDump())
	}

	if order.Quantity <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %d", order.Quantity)
	}

	if order.Price <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %f", order.Price)
	}

	requested := decimal.NewFromFloat(order.Price)
	fill := l.costModel.FillPrice(requested, types.SideBuy)
	notional := fill.Mul(decimal.NewFromInt(order.Quantity))
	cost := l.costModel.Cost(notional, types.SideBuy).Total()
	total := notional.Add(cost)

	if l.cash.LessThan(total) {
		return types.Trade{}, errors.NewInvariantViolation(errors.ErrCodeNegativeCash,
			"open of "+order.Instrument+" would overdraw cash", l.stateDump())
	}

	l.cash = l.cash.Sub(total)
	l.costsPaid = l.costsPaid.Add(cost)

	fillF, _ := fill.Float64()
	costF, _ := cost.Float64()

	l.positions[order.Instrument] = types.Position{
		Instrument:    order.Instrument,
		Quantity:      order.Quantity,
		AvgEntryPrice: fillF,
		EntryDate:     order.Date,
		StopLoss:      order.StopLoss,
		TargetPrice:   order.Target,
		LastMark:      fillF,
		Open:          true,
	}
	l.entryFills[order.Instrument] = fill

	trade := types.Trade{
		ID:             uuid.New().String(),
		Instrument:     order.Instrument,
		Side:           types.SideBuy,
		Quantity:       order.Quantity,
		RequestedPrice: order.Price,
		FilledPrice:    fillF,
		Cost:           costF,
		Timestamp:      order.Date,
		Reason:         order.Reason,
	}
	l.trades = append(l.trades, trade)

	l.logger.Debug("position opened",
		zap.String("instrument", order.Instrument),
		zap.Int64("quantity", order.Quantity),
		zap.Float64("fill", fillF),
		zap.Float64("cost", costF))

	return trade, nil
}

// Close fills a sell order against the instrument's open position and
// realizes its P&L. It fails with an invariant violation when no open
// position exists.
func (l *Ledger) Close(instrument string, price float64, date time.Time, reason types.Reason) (types.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	position, exists := l.positions[instrument]
	if !exists {
		return types.Trade{}, errors.NewInvariantViolation(errors.ErrCodeNoOpenPosition,
			"attempted close without open position for "+instrument, l.stateDump())
	}

	if price <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %f", price)
	}

	requested := decimal.NewFromFloat(price)
	fill := l.costModel.FillPrice(requested, types.SideSell)
	quantity := decimal.NewFromInt(position.Quantity)
	notional := fill.Mul(quantity)
	cost := l.costModel.Cost(notional, types.SideSell).Total()

	l.cash = l.cash.Add(notional.Sub(cost))
	l.costsPaid = l.costsPaid.Add(cost)

	entry := l.entryFills[instrument]
	gross := fill.Sub(entry).Mul(quantity)
	l.grossRealized = l.grossRealized.Add(gross)

	net := gross.Sub(cost)
	netF, _ := net.Float64()

	basis := entry.Mul(quantity)
	pct := 0.0

	if !basis.IsZero() {
		pct, _ = net.Div(basis).Mul(decimal.NewFromInt(100)).Float64()
	}

	l.closedOutcomes = append(l.closedOutcomes, closedOutcome{pnl: netF, pct: pct})
	delete(l.positions, instrument)
	delete(l.entryFills, instrument)

	fillF, _ := fill.Float64()
	costF, _ := cost.Float64()

	position.Open = false
	position.RealizedPnL = netF
	position.LastMark = fillF
	l.closed = append(l.closed, position)

	trade := types.Trade{
		ID:             uuid.New().String(),
		Instrument:     instrument,
		Side:           types.SideSell,
		Quantity:       position.Quantity,
		RequestedPrice: price,
		FilledPrice:    fillF,
		Cost:           costF,
		Timestamp:      date,
		Reason:         reason,
		PnL:            netF,
	}
	l.trades = append(l.trades, trade)

	l.logger.Debug("position closed",
		zap.String("instrument", instrument),
		zap.String("reason", reason.Reason),
		zap.Float64("pnl", netF))

	return trade, nil
}

// Mark updates the last mark of every open position present in
// prices. Cash is untouched.
func (l *Ledger) Mark(prices map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for instrument, price := range prices {
		position, exists := l.positions[instrument]
		if !exists {
			continue
		}

		position.LastMark = price
		l.positions[instrument] = position
	}
}

// Snapshot appends the current total equity under the given date.
func (l *Ledger) Snapshot(date time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.snapshots = append(l.snapshots, types.Snapshot{
		Date:       date,
		TotalValue: l.totalEquityLocked(),
	})
}

// TotalEquity returns cash plus the mark-to-market value of all open
// positions.
func (l *Ledger) TotalEquity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalEquityLocked()
}

func (l *Ledger) totalEquityLocked() float64 {
	total := l.cash

	for _, position := range l.positions {
		total = total.Add(decimal.NewFromFloat(position.MarketValue()))
	}

	value, _ := total.Float64()

	return value
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	value, _ := l.cash.Float64()

	return value
}

// InitialCapital returns the starting cash of the run.
func (l *Ledger) InitialCapital() float64 {
	value, _ := l.initialCapital.Float64()

	return value
}

// Position returns the open position for instrument, if any.
func (l *Ledger) Position(instrument string) (types.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	position, exists := l.positions[instrument]

	return position, exists
}

// OpenPositions returns a copy of all open positions sorted by
// instrument.
func (l *Ledger) OpenPositions() []types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]types.Position, 0, len(l.positions))
	for _, position := range l.positions {
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Instrument < positions[j].Instrument
	})

	return positions
}

// ClosedPositions returns a copy of every closed position in close
// order, each carrying its realized net P&L.
func (l *Ledger) ClosedPositions() []types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	closed := make([]types.Position, len(l.closed))
	copy(closed, l.closed)

	return closed
}

// MaxAffordableQuantity returns the largest quantity whose filled
// notional plus costs fits in the current cash balance at the given
// requested price. Zero means no entry can be funded.
func (l *Ledger) MaxAffordableQuantity(price float64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if price <= 0 {
		return 0
	}

	fill := l.costModel.FillPrice(decimal.NewFromFloat(price), types.SideBuy)
	perShare := fill.Add(l.costModel.Cost(fill, types.SideBuy).Total())
	if !perShare.IsPositive() {
		return 0
	}

	quantity := l.cash.Div(perShare).IntPart()

	// Guard against cost models that are not linear in notional.
	for quantity > 0 {
		notional := fill.Mul(decimal.NewFromInt(quantity))
		total := notional.Add(l.costModel.Cost(notional, types.SideBuy).Total())

		if !l.cash.LessThan(total) {
			break
		}

		quantity--
	}

	return quantity
}

// OpenPositionCount returns the number of open positions.
func (l *Ledger) OpenPositionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.positions)
}

// Trades returns a copy of the trade log in fill order.
func (l *Ledger) Trades() []types.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	trades := make([]types.Trade, len(l.trades))
	copy(trades, l.trades)

	return trades
}

// Snapshots returns a copy of the daily equity series.
func (l *Ledger) Snapshots() []types.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshots := make([]types.Snapshot, len(l.snapshots))
	copy(snapshots, l.snapshots)

	return snapshots
}

// Reconcile verifies cash conservation: the starting capital must
// equal cash plus the cost basis of open positions plus all costs
// paid minus gross realized gains. All bookkeeping is decimal, so
// the identity holds exactly; any drift is a logic bug and raises an
// invariant violation carrying a full state dump.
func (l *Ledger) Reconcile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	openBasis := decimal.Zero
	for instrument, position := range l.positions {
		openBasis = openBasis.Add(l.entryFills[instrument].Mul(decimal.NewFromInt(position.Quantity)))
	}

	reconstructed := l.cash.Add(openBasis).Add(l.costsPaid).Sub(l.grossRealized)

	if !reconstructed.Equal(l.initialCapital) {
		return errors.NewInvariantViolation(errors.ErrCodeLedgerDrift,
			"cash conservation violated: reconstructed "+reconstructed.String()+
				" vs initial "+l.initialCapital.String(), l.stateDump())
	}

	return nil
}

// stateDump renders the ledger state for invariant-violation errors.
// Callers must hold the mutex.
func (l *Ledger) stateDump() string {
	positions := make([]types.Position, 0, len(l.positions))
	for _, position := range l.positions {
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Instrument < positions[j].Instrument
	})

	dump := struct {
		Cash           string           `json:"cash"`
		InitialCapital string           `json:"initial_capital"`
		CostsPaid      string           `json:"costs_paid"`
		GrossRealized  string           `json:"gross_realized"`
		Positions      []types.Position `json:"positions"`
		TradeCount     int              `json:"trade_count"`
	}{
		Cash:           l.cash.String(),
		InitialCapital: l.initialCapital.String(),
		CostsPaid:      l.costsPaid.String(),
		GrossRealized:  l.grossRealized.String(),
		Positions:      positions,
		TradeCount:     len(l.trades),
	}

	raw, err := json.Marshal(dump)
	if err != nil {
		return "unserializable ledger state"
	}

	return string(raw)
}
