package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/aerucodes/emacross/internal/logger"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// TradeJournal records every simulated order, fill and the finished equity
// curve in an in-memory DuckDB database, and exports them as Parquet when a
// run's results are written. The ledger remains the source of truth for cash
// and position; the journal is an audit trail.
type TradeJournal struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// TradeSummary aggregates the journal's trades for one run.
type TradeSummary struct {
	TotalTrades   int     `yaml:"total_trades"`
	WinningTrades int     `yaml:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades"`
	TotalFees     float64 `yaml:"total_fees"`
	RealizedPnL   float64 `yaml:"realized_pnl"`
}

// NewTradeJournal opens an in-memory DuckDB journal.
func NewTradeJournal(logger *logger.Logger) (*TradeJournal, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to open journal database", err)
	}

	return &TradeJournal{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the journal tables.
func (j *TradeJournal) Initialize() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			quantity BIGINT,
			reference_price DOUBLE,
			timestamp TIMESTAMP,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create orders table", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			executed_at TIMESTAMP,
			executed_qty BIGINT,
			executed_price DOUBLE,
			fee DOUBLE,
			gross_pnl DOUBLE,
			net_pnl DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create trades table", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			time TIMESTAMP,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create equity table", err)
	}

	return nil
}

// RecordFill stores an executed trade together with its originating order in
// one transaction.
func (j *TradeJournal) RecordFill(trade types.Trade) error {
	tx, err := j.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to begin transaction", err)
	}

	insertOrder := j.sq.
		Insert("orders").
		Columns("order_id", "symbol", "side", "quantity", "reference_price", "timestamp", "reason").
		Values(
			trade.Order.ID, trade.Order.Symbol, trade.Order.Side, trade.Order.Quantity,
			trade.Order.ReferencePrice, trade.Order.Timestamp, trade.Order.Reason,
		).
		RunWith(tx)

	if _, err = insertOrder.Exec(); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to insert order", err)
	}

	insertTrade := j.sq.
		Insert("trades").
		Columns("order_id", "symbol", "side", "executed_at", "executed_qty", "executed_price", "fee", "gross_pnl", "net_pnl").
		Values(
			trade.Order.ID, trade.Order.Symbol, trade.Order.Side, trade.ExecutedAt,
			trade.ExecutedQty, trade.ExecutedPrice, trade.Fee, trade.GrossPnL, trade.NetPnL,
		).
		RunWith(tx)

	if _, err = insertTrade.Exec(); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to insert trade", err)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to commit transaction", err)
	}

	return nil
}

// RecordEquityCurve stores the finished equity curve. Called once at the end
// of a run; the in-run curve lives in the ledger.
func (j *TradeJournal) RecordEquityCurve(curve []types.EquityPoint) error {
	if len(curve) == 0 {
		return nil
	}

	insert := j.sq.Insert("equity").Columns("time", "equity")
	for _, point := range curve {
		insert = insert.Values(point.Time, point.Equity)
	}

	if _, err := insert.RunWith(j.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to insert equity curve", err)
	}

	return nil
}

// GetTrades returns all recorded trades in execution order.
func (j *TradeJournal) GetTrades() ([]types.Trade, error) {
	selectQuery := j.sq.
		Select("t.order_id", "t.symbol", "t.side", "o.quantity", "o.reference_price", "o.timestamp", "o.reason",
			"t.executed_at", "t.executed_qty", "t.executed_price", "t.fee", "t.gross_pnl", "t.net_pnl").
		From("trades t").
		Join("orders o ON o.order_id = t.order_id").
		OrderBy("t.executed_at ASC").
		RunWith(j.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.Order.ID,
			&trade.Order.Symbol,
			&trade.Order.Side,
			&trade.Order.Quantity,
			&trade.Order.ReferencePrice,
			&trade.Order.Timestamp,
			&trade.Order.Reason,
			&trade.ExecutedAt,
			&trade.ExecutedQty,
			&trade.ExecutedPrice,
			&trade.Fee,
			&trade.GrossPnL,
			&trade.NetPnL,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Summary aggregates the run's trades. Winning and losing trades are counted
// over closed round trips (sell fills).
func (j *TradeJournal) Summary() (TradeSummary, error) {
	query := `
		SELECT
			COUNT(*) as total_trades,
			COALESCE(SUM(CASE WHEN side = ? AND net_pnl > 0 THEN 1 ELSE 0 END), 0) as winning_trades,
			COALESCE(SUM(CASE WHEN side = ? AND net_pnl < 0 THEN 1 ELSE 0 END), 0) as losing_trades,
			COALESCE(SUM(fee), 0) as total_fees,
			COALESCE(SUM(net_pnl), 0) as realized_pnl
		FROM trades
	`

	var summary TradeSummary

	err := j.db.QueryRow(query, types.PurchaseTypeSell, types.PurchaseTypeSell).Scan(
		&summary.TotalTrades,
		&summary.WinningTrades,
		&summary.LosingTrades,
		&summary.TotalFees,
		&summary.RealizedPnL,
	)
	if err != nil {
		return TradeSummary{}, errors.Wrap(errors.ErrCodeJournalFailed, "failed to aggregate trades", err)
	}

	return summary, nil
}

// Write exports the journal to Parquet files in the given directory.
func (j *TradeJournal) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create results directory", err)
	}

	exports := map[string]string{
		"trades": filepath.Join(path, "trades.parquet"),
		"orders": filepath.Join(path, "orders.parquet"),
		"equity": filepath.Join(path, "equity.parquet"),
	}

	for table, target := range exports {
		_, err := j.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to export %s to Parquet", table)
		}
	}

	j.logger.Info("Exported journal to Parquet files",
		zap.String("trades", exports["trades"]),
		zap.String("orders", exports["orders"]),
		zap.String("equity", exports["equity"]),
	)

	return nil
}

// Cleanup resets the journal between runs.
func (j *TradeJournal) Cleanup() error {
	_, err := j.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
		DROP TABLE IF EXISTS equity;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to drop journal tables", err)
	}

	return j.Initialize()
}

// Close releases the database.
func (j *TradeJournal) Close() error {
	return j.db.Close()
}
