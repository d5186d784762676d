// Package simulator drives the day-by-day walk-forward replay. All
// entry decisions for a day are made from data dated strictly before
// it, evaluated in parallel across the watchlist, then applied to the
// ledger in one serialized pass.
package simulator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/pattern-lab/formation-trading/internal/costs"
	"github.com/pattern-lab/formation-trading/internal/decision"
	"github.com/pattern-lab/formation-trading/internal/history"
	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/pattern"
	"github.com/pattern-lab/formation-trading/internal/pattern/cache"
	"github.com/pattern-lab/formation-trading/internal/portfolio"
	"github.com/pattern-lab/formation-trading/internal/risk"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/internal/version"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// OnDayCallback is invoked after each simulated day completes.
type OnDayCallback func(date time.Time, equity float64)

// Engine replays trading days against a simulated portfolio.
type Engine struct {
	config    Config
	store     *history.Store
	registry  pattern.Registry
	validator *pattern.Validator
	source    decision.Source
	riskMgr   *risk.Manager
	ledger    *portfolio.Ledger
	logger    *logger.Logger

	formations []types.FormationAudit
	onDay      optional.Option[OnDayCallback]
}

// NewEngine assembles an engine from a validated config. A nil
// resultCache falls back to the in-process cache and a nil logger to
// the no-op logger.
func NewEngine(config Config, store *history.Store, source decision.Source, resultCache cache.Cache, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if resultCache == nil {
		resultCache = cache.NewMemory()
	}

	costModel := costs.GetModel(config.CostModel)
	registry := pattern.NewDefaultRegistry(config.WindowSize)
	validator := pattern.NewValidator(registry, resultCache, config.ValidationStride, config.MinOccurrences)

	riskMgr, err := risk.NewManager(config.Risk)
	if err != nil {
		return nil, err
	}

	ledger, err := portfolio.NewLedger(config.InitialCapital, costModel, log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:    config,
		store:     store,
		registry:  registry,
		validator: validator,
		source:    source,
		riskMgr:   riskMgr,
		ledger:    ledger,
		logger:    log,
		onDay:     optional.None[OnDayCallback](),
	}, nil
}

// SetOnDayCallback registers a callback fired after every simulated
// day.
func (e *Engine) SetOnDayCallback(callback OnDayCallback) {
	e.onDay = optional.Some(callback)
}

// Ledger exposes the engine's ledger for inspection after a run.
func (e *Engine) Ledger() *portfolio.Ledger {
	return e.ledger
}

// Run replays every trading day in the configured period and returns
// the final report. Invariant violations abort the run immediately;
// collaborator failures are absorbed as "no action" days.
func (e *Engine) Run(ctx context.Context) (types.Report, error) {
	days := e.tradingDays()
	if len(days) == 0 {
		return types.Report{}, errors.New(errors.ErrCodeNoTradingDays, "no trading days in the configured period")
	}

	e.logger.Info("starting walk-forward run",
		zap.Int("days", len(days)),
		zap.Strings("watchlist", e.config.Watchlist),
		zap.Time("start", days[0]),
		zap.Time("end", days[len(days)-1]))

	daysSinceSignalCheck := e.config.SignalCheckInterval

	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return types.Report{}, errors.Wrap(errors.ErrCodeUnknown, "run cancelled", err)
		}

		e.markPositions(day)

		checkSignals := daysSinceSignalCheck >= e.config.SignalCheckInterval
		if checkSignals {
			daysSinceSignalCheck = 0
		}

		daysSinceSignalCheck++

		if err := e.processExits(ctx, day, checkSignals); err != nil {
			return types.Report{}, err
		}

		lastDay := i == len(days)-1

		if lastDay {
			if err := e.forceCloseAll(day); err != nil {
				return types.Report{}, err
			}
		} else if i > 0 {
			// Entries see data up to the previous close only. Day
			// zero has no prior close to decide from.
			if err := e.processEntries(ctx, day, days[i-1]); err != nil {
				return types.Report{}, err
			}
		}

		e.ledger.Snapshot(day)

		if err := e.ledger.Reconcile(); err != nil {
			e.logger.Error("ledger reconciliation failed", zap.Error(err))

			return types.Report{}, err
		}

		if e.onDay.IsSome() {
			e.onDay.Unwrap()(day, e.ledger.TotalEquity())
		}
	}

	return e.buildReport(days), nil
}

// tradingDays resolves the configured period against the store.
func (e *Engine) tradingDays() []time.Time {
	start := time.Time{}
	if e.config.StartTime.IsSome() {
		start = e.config.StartTime.Unwrap()
	}

	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	if e.config.EndTime.IsSome() {
		end = e.config.EndTime.Unwrap()
	}

	return e.store.TradingDays(start, end)
}

// markPositions marks every open position to the day's close.
func (e *Engine) markPositions(day time.Time) {
	prices := make(map[string]float64)

	for _, position := range e.ledger.OpenPositions() {
		if bar, ok := e.store.BarOn(position.Instrument, day); ok {
			prices[position.Instrument] = bar.Close
		}
	}

	e.ledger.Mark(prices)
}

// processExits checks every open position against the day's bar. When
// both the stop and the target are pierced on the same day the stop
// wins, since intraday ordering is unknowable from daily bars and the
// engine must not assume the kind outcome.
func (e *Engine) processExits(ctx context.Context, day time.Time, checkSignals bool) error {
	for _, position := range e.ledger.OpenPositions() {
		bar, ok := e.store.BarOn(position.Instrument, day)
		if !ok {
			continue
		}

		switch {
		case position.StopLoss > 0 && bar.Low <= position.StopLoss:
			if _, err := e.ledger.Close(position.Instrument, position.StopLoss, day,
				types.Reason{Reason: types.TradeReasonStopLoss, Message: "stop pierced intraday"}); err != nil {
				return err
			}

		case position.TargetPrice > 0 && bar.High >= position.TargetPrice:
			if _, err := e.ledger.Close(position.Instrument, position.TargetPrice, day,
				types.Reason{Reason: types.TradeReasonTarget, Message: "target reached intraday"}); err != nil {
				return err
			}

		case checkSignals:
			if !e.exitSignalFires(ctx, position.Instrument, day) {
				continue
			}

			if _, err := e.ledger.Close(position.Instrument, bar.Close, day,
				types.Reason{Reason: types.TradeReasonSignalExit, Message: "external exit signal"}); err != nil {
				return err
			}
		}
	}

	return nil
}

// exitSignalFires asks the decision source about a held position. Any
// failure counts as no signal.
func (e *Engine) exitSignalFires(ctx context.Context, instrument string, day time.Time) bool {
	verdict, err := e.source.Decide(ctx, decision.Request{
		Instrument: instrument,
		AsOf:       day,
	})
	if err != nil {
		e.logger.Warn("exit signal check failed, holding",
			zap.String("instrument", instrument),
			zap.Error(err))

		return false
	}

	return verdict.Action == types.ActionSell
}

// evaluation is the outcome of one instrument's entry analysis.
type evaluation struct {
	audits   []types.FormationAudit
	proposal optional.Option[entryProposal]
}

type entryProposal struct {
	formation  types.Formation
	validation types.ValidationResult
	verdict    types.Decision
	auditIndex int
}

// processEntries evaluates all unheld watchlist instruments in
// parallel against data up to asOf, then applies the resulting
// proposals to the ledger serially in watchlist order.
func (e *Engine) processEntries(ctx context.Context, day, asOf time.Time) error {
	results := make([]evaluation, len(e.config.Watchlist))

	var wg sync.WaitGroup

	sem := make(chan struct{}, e.config.Workers)

	for i, instrument := range e.config.Watchlist {
		if _, held := e.ledger.Position(instrument); held {
			continue
		}

		wg.Add(1)

		go func(slot int, instrument string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[slot] = e.evaluateInstrument(ctx, instrument, asOf)
		}(i, instrument)
	}

	wg.Wait()

	for _, result := range results {
		base := len(e.formations)
		e.formations = append(e.formations, result.audits...)

		if result.proposal.IsNone() {
			continue
		}

		proposal := result.proposal.Unwrap()

		entered, err := e.applyEntry(day, proposal)
		if err != nil {
			return err
		}

		if entered {
			e.formations[base+proposal.auditIndex].Entered = true
		}
	}

	return nil
}

// evaluateInstrument runs detection, validation and the decision
// source for one instrument. Collaborator failures degrade to "no
// action"; only detector kinds are tried in sorted order so replays
// are deterministic.
func (e *Engine) evaluateInstrument(ctx context.Context, instrument string, asOf time.Time) evaluation {
	var result evaluation

	kinds := e.registry.List()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		detector, err := e.registry.Get(kind)
		if err != nil {
			continue
		}

		window, err := e.store.WindowEndingAt(instrument, asOf, detector.MinWindow())
		if err != nil {
			// Not enough history yet for this detector.
			continue
		}

		found, err := detector.Detect(window)
		if err != nil || found.IsNone() {
			continue
		}

		formation := found.Unwrap()

		validation, err := e.validateFormation(ctx, formation, instrument, asOf)
		if err != nil {
			e.logger.Warn("validation failed, skipping formation",
				zap.String("instrument", instrument),
				zap.String("kind", string(kind)),
				zap.Error(err))

			continue
		}

		auditIndex := len(result.audits)
		result.audits = append(result.audits, types.FormationAudit{
			Instrument: instrument,
			Date:       asOf,
			Kind:       kind,
			Formation:  formation,
			Validation: validation,
		})

		if !validation.Approved || result.proposal.IsSome() {
			continue
		}

		verdict, err := e.source.Decide(ctx, decision.Request{
			Instrument: instrument,
			AsOf:       asOf,
			Formation:  optional.Some(formation),
			Validation: optional.Some(validation),
		})
		if err != nil {
			e.logger.Warn("decision source failed, holding",
				zap.String("instrument", instrument),
				zap.Error(err))

			continue
		}

		if verdict.Action != types.ActionBuy {
			continue
		}

		result.proposal = optional.Some(entryProposal{
			formation:  formation,
			validation: validation,
			verdict:    verdict,
			auditIndex: auditIndex,
		})
	}

	return result
}

// validateFormation runs the historical rescan against everything
// known up to asOf.
func (e *Engine) validateFormation(ctx context.Context, formation types.Formation, instrument string, asOf time.Time) (types.ValidationResult, error) {
	full, err := e.store.AllUpTo(instrument, asOf)
	if err != nil {
		return types.ValidationResult{}, err
	}

	return e.validator.Validate(ctx, formation, full)
}

// applyEntry sizes and risk-checks one proposal, then opens the
// position. A risk veto is an expected outcome, not an error.
func (e *Engine) applyEntry(day time.Time, proposal entryProposal) (bool, error) {
	entry := proposal.formation.EntryPrice

	stop := proposal.verdict.StopLoss
	if stop <= 0 || stop >= entry {
		stop = pattern.StopLevel(proposal.formation)
	}

	target := proposal.verdict.Target
	if target <= entry {
		return false, nil
	}

	quantity := e.riskMgr.SafeQuantity(e.ledger, entry)
	if quantity <= 0 {
		return false, nil
	}

	// Sizing works off total equity, which can outrun cash when open
	// positions appreciate. Cap the order at what cash can settle.
	if affordable := e.ledger.MaxAffordableQuantity(entry); quantity > affordable {
		e.logger.Info("entry capped at funded size",
			zap.String("instrument", proposal.formation.Instrument),
			zap.Int64("sized", quantity),
			zap.Int64("funded", affordable))

		quantity = affordable
	}

	if quantity <= 0 {
		return false, nil
	}

	ok, reasons := e.riskMgr.CanOpen(e.ledger, risk.Proposal{
		Instrument: proposal.formation.Instrument,
		Quantity:   quantity,
		EntryPrice: entry,
		StopLoss:   stop,
	})
	if !ok {
		for _, reason := range reasons {
			e.logger.Info("entry vetoed",
				zap.String("instrument", proposal.formation.Instrument),
				zap.String("check", reason.Reason),
				zap.String("detail", reason.Message))
		}

		return false, nil
	}

	_, err := e.ledger.Open(portfolio.OpenOrder{
		Instrument: proposal.formation.Instrument,
		Quantity:   quantity,
		Price:      entry,
		StopLoss:   stop,
		Target:     target,
		Date:       day,
		Reason:     types.Reason{Reason: types.TradeReasonSignalEntry, Message: proposal.verdict.Rationale},
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// forceCloseAll liquidates every remaining position at the final
// day's close.
func (e *Engine) forceCloseAll(day time.Time) error {
	for _, position := range e.ledger.OpenPositions() {
		price := position.LastMark
		if bar, ok := e.store.BarOn(position.Instrument, day); ok {
			price = bar.Close
		}

		if _, err := e.ledger.Close(position.Instrument, price, day,
			types.Reason{Reason: types.TradeReasonEndOfPeriod, Message: "simulation period ended"}); err != nil {
			return err
		}
	}

	return nil
}

// buildReport assembles the run's final document.
func (e *Engine) buildReport(days []time.Time) types.Report {
	report := types.Report{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		EngineVersion:  version.GetVersion(),
		StartDate:      days[0],
		EndDate:        days[len(days)-1],
		InitialCapital: e.ledger.InitialCapital(),
		FinalEquity:    e.ledger.TotalEquity(),
		Stats:          e.ledger.Stats(),
		Trades:         e.ledger.Trades(),
		Snapshots:      e.ledger.Snapshots(),
		Formations:     e.formations,
	}

	e.logger.Info("run complete",
		zap.Float64("final_equity", report.FinalEquity),
		zap.Float64("return_pct", report.Stats.TotalReturnPct),
		zap.Int("trades", len(report.Trades)),
		zap.Int("formations", len(report.Formations)))

	return report
}
