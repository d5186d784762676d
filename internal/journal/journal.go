// Package journal archives completed runs to DuckDB so results can be
// compared across runs and exported for analysis elsewhere.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Journal persists run reports. One journal file accumulates many
// runs keyed by run ID.
type Journal struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewJournal opens (or creates) the journal at path. An empty path
// keeps the journal in memory.
func NewJournal(path string, log *logger.Logger) (*Journal, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalInit, "failed to open journal database", err)
	}

	journal := &Journal{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := journal.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return journal, nil
}

func (j *Journal) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TIMESTAMP,
			engine_version TEXT,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			initial_capital DOUBLE,
			final_equity DOUBLE,
			total_return_pct DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown_pct DOUBLE,
			win_rate DOUBLE,
			total_costs DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id TEXT,
			instrument TEXT,
			side TEXT,
			quantity BIGINT,
			requested_price DOUBLE,
			filled_price DOUBLE,
			cost DOUBLE,
			timestamp TIMESTAMP,
			reason TEXT,
			message TEXT,
			pnl DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT,
			date TIMESTAMP,
			total_value DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS formations (
			run_id TEXT,
			instrument TEXT,
			date TIMESTAMP,
			kind TEXT,
			occurrence_count INTEGER,
			conservative_hit_rate DOUBLE,
			aggressive_hit_rate DOUBLE,
			risk_reward_ratio DOUBLE,
			approved BOOLEAN,
			approved_target TEXT,
			entered BOOLEAN
		)`,
	}

	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeJournalInit, "failed to create journal tables", err)
		}
	}

	return nil
}

// Archive writes one report in a single transaction.
func (j *Journal) Archive(report types.Report) error {
	tx, err := j.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to begin transaction", err)
	}

	insertRun := j.sq.
		Insert("runs").
		Columns("run_id", "created_at", "engine_version", "start_date", "end_date",
			"initial_capital", "final_equity", "total_return_pct", "sharpe_ratio",
			"max_drawdown_pct", "win_rate", "total_costs").
		Values(report.ID, report.Timestamp, report.EngineVersion, report.StartDate, report.EndDate,
			report.InitialCapital, report.FinalEquity, report.Stats.TotalReturnPct, report.Stats.SharpeRatio,
			report.Stats.MaxDrawdownPct, report.Stats.WinRate, report.Stats.TotalCosts).
		RunWith(tx)

	if _, err := insertRun.Exec(); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert run", err)
	}

	for _, trade := range report.Trades {
		insertTrade := j.sq.
			Insert("trades").
			Columns("run_id", "trade_id", "instrument", "side", "quantity",
				"requested_price", "filled_price", "cost", "timestamp", "reason", "message", "pnl").
			Values(report.ID, trade.ID, trade.Instrument, string(trade.Side), trade.Quantity,
				trade.RequestedPrice, trade.FilledPrice, trade.Cost, trade.Timestamp,
				trade.Reason.Reason, trade.Reason.Message, trade.PnL).
			RunWith(tx)

		if _, err := insertTrade.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert trade", err)
		}
	}

	for _, snapshot := range report.Snapshots {
		insertSnapshot := j.sq.
			Insert("snapshots").
			Columns("run_id", "date", "total_value").
			Values(report.ID, snapshot.Date, snapshot.TotalValue).
			RunWith(tx)

		if _, err := insertSnapshot.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert snapshot", err)
		}
	}

	for _, audit := range report.Formations {
		insertFormation := j.sq.
			Insert("formations").
			Columns("run_id", "instrument", "date", "kind", "occurrence_count",
				"conservative_hit_rate", "aggressive_hit_rate", "risk_reward_ratio",
				"approved", "approved_target", "entered").
			Values(report.ID, audit.Instrument, audit.Date, string(audit.Kind), audit.Validation.OccurrenceCount,
				audit.Validation.ConservativeHitRate, audit.Validation.AggressiveHitRate,
				audit.Validation.RiskRewardRatio, audit.Validation.Approved,
				string(audit.Validation.ApprovedTarget), audit.Entered).
			RunWith(tx)

		if _, err := insertFormation.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert formation audit", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to commit archive", err)
	}

	j.logger.Info("run archived",
		zap.String("run_id", report.ID),
		zap.Int("trades", len(report.Trades)),
		zap.Int("formations", len(report.Formations)))

	return nil
}

// RunCount returns how many runs the journal holds.
func (j *Journal) RunCount() (int, error) {
	var count int

	row := j.sq.Select("COUNT(*)").From("runs").RunWith(j.db).QueryRow()
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeJournalWrite, "failed to count runs", err)
	}

	return count, nil
}

// TradeCount returns how many trades are archived for a run.
func (j *Journal) TradeCount(runID string) (int, error) {
	var count int

	row := j.sq.Select("COUNT(*)").From("trades").Where(squirrel.Eq{"run_id": runID}).RunWith(j.db).QueryRow()
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeJournalWrite, "failed to count trades", err)
	}

	return count, nil
}

// ExportParquet dumps each journal table as a Parquet file under dir.
func (j *Journal) ExportParquet(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalExport, "failed to create export directory", err)
	}

	// COPY has no placeholder support, so paths are interpolated.
	for _, table := range []string{"runs", "trades", "snapshots", "formations"} {
		target := filepath.Join(dir, table+".parquet")

		if _, err := j.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target)); err != nil {
			return errors.Wrapf(errors.ErrCodeJournalExport, err, "failed to export %s", table)
		}
	}

	j.logger.Info("journal exported", zap.String("dir", dir))

	return nil
}

// Cleanup drops all archived data and recreates the tables.
func (j *Journal) Cleanup() error {
	for _, table := range []string{"runs", "trades", "snapshots", "formations"} {
		if _, err := j.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errors.Wrapf(errors.ErrCodeJournalWrite, err, "failed to drop %s", table)
		}
	}

	return j.initialize()
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
