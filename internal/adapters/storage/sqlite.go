package storage

// sqlite.go — bookkeeping de señales y posiciones.
//
// Estrategia:
//   - `signals`: una fila por señal (UPSERT por id). Las patas se guardan
//     aplanadas; al leer se reconstruye el spread con los constructores
//     del dominio.
//   - `trades`: una fila por posición, actualizada en cada mark-to-market.
//   - `scans`: resumen ligero por ciclo, una fila por scan.
//   - Prune al arrancar: señales viejas fuera de retención.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/optbot/internal/domain"
	"github.com/alejandrodnm/optbot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Señales generadas por el pipeline
CREATE TABLE IF NOT EXISTS signals (
    id              TEXT PRIMARY KEY,
    symbol          TEXT NOT NULL,
    sector          TEXT,
    spread_type     TEXT NOT NULL,
    short_strike    REAL NOT NULL,
    long_strike     REAL NOT NULL,
    short_delta     REAL NOT NULL DEFAULT 0,
    long_delta      REAL NOT NULL DEFAULT 0,
    net_theta       REAL NOT NULL DEFAULT 0,
    net_gamma       REAL NOT NULL DEFAULT 0,
    dte             INTEGER NOT NULL DEFAULT 0,
    entry_price     REAL NOT NULL,
    pop             REAL NOT NULL DEFAULT 0,
    expected_value  REAL NOT NULL DEFAULT 0,
    ev_percent      REAL NOT NULL DEFAULT 0,
    capital_at_risk REAL NOT NULL DEFAULT 0,
    kelly_fraction  REAL NOT NULL DEFAULT 0,
    take_profit     REAL NOT NULL DEFAULT 0,
    stop_loss       REAL NOT NULL DEFAULT 0,
    pair_spread     REAL NOT NULL DEFAULT 0,
    entry_notes     TEXT,
    created_at      DATETIME NOT NULL
);

-- Posiciones abiertas desde señales
CREATE TABLE IF NOT EXISTS trades (
    id              TEXT PRIMARY KEY,
    symbol          TEXT NOT NULL,
    sector          TEXT,
    spread_type     TEXT NOT NULL,
    quantity        INTEGER NOT NULL DEFAULT 1,
    entry_date      DATETIME NOT NULL,
    entry_price     REAL NOT NULL,
    exit_date       DATETIME,
    exit_price      REAL NOT NULL DEFAULT 0,
    current_price   REAL NOT NULL DEFAULT 0,
    unrealized_pnl  REAL NOT NULL DEFAULT 0,
    realized_pnl    REAL NOT NULL DEFAULT 0,
    pnl_percent     REAL NOT NULL DEFAULT 0,
    stop_loss       REAL NOT NULL DEFAULT 0,
    take_profit     REAL NOT NULL DEFAULT 0,
    tp_hit          INTEGER NOT NULL DEFAULT 0,
    sl_hit          INTEGER NOT NULL DEFAULT 0,
    capital_at_risk REAL NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    outcome         TEXT NOT NULL DEFAULT 'PENDING',
    expected_value  REAL NOT NULL DEFAULT 0,
    pop             REAL NOT NULL DEFAULT 0,
    notes           TEXT
);

-- Resumen ligero por ciclo de scan
CREATE TABLE IF NOT EXISTS scans (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at    DATETIME NOT NULL,
    finished_at   DATETIME NOT NULL,
    universe      INTEGER NOT NULL DEFAULT 0,
    passed_l1     INTEGER NOT NULL DEFAULT 0,
    passed_l2     INTEGER NOT NULL DEFAULT 0,
    passed_l3     INTEGER NOT NULL DEFAULT 0,
    signals       INTEGER NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0,
    pair_spread   REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_symbol  ON signals(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_status   ON trades(status);
CREATE INDEX IF NOT EXISTS idx_scans_started   ON scans(started_at DESC);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y
// aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.ApplySchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ApplySchema implementa ports.Storage.
func (s *SQLiteStorage) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage.ApplySchema: %w", err)
	}
	return nil
}

// SaveSignal implementa ports.Storage.
func (s *SQLiteStorage) SaveSignal(ctx context.Context, sig domain.TradeSignal) error {
	short, long := sig.Spread.Legs()
	net := sig.Spread.NetGreeks()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(id, symbol, sector, spread_type, short_strike, long_strike,
			 short_delta, long_delta, net_theta, net_gamma, dte, entry_price,
			 pop, expected_value, ev_percent, capital_at_risk, kelly_fraction,
			 take_profit, stop_loss, pair_spread, entry_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pop             = excluded.pop,
			expected_value  = excluded.expected_value,
			ev_percent      = excluded.ev_percent,
			capital_at_risk = excluded.capital_at_risk,
			entry_notes     = excluded.entry_notes
	`,
		sig.ID, sig.Symbol, sig.Sector, string(sig.Spread.Type()),
		short.Strike, long.Strike,
		short.Greeks.Delta, long.Greeks.Delta, net.Theta, net.Gamma,
		sig.Spread.DTE(), sig.Spread.EntryPrice(),
		sig.PoP, sig.ExpectedValue, sig.EVPercent, sig.CapitalAtRisk,
		sig.KellyFraction, sig.TakeProfit, sig.StopLoss,
		sig.PairSpreadAtEntry, sig.EntryNotes, sig.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSignal: %s: %w", sig.ID, err)
	}
	return nil
}

// GetSignals implementa ports.Storage. El spread se reconstruye con los
// constructores del dominio desde las patas aplanadas.
func (s *SQLiteStorage) GetSignals(ctx context.Context, since time.Time) ([]domain.TradeSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, sector, spread_type, short_strike, long_strike,
		       short_delta, long_delta, net_theta, net_gamma, dte, entry_price,
		       pop, expected_value, ev_percent, capital_at_risk, kelly_fraction,
		       take_profit, stop_loss, pair_spread, entry_notes, created_at
		FROM signals
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetSignals: query: %w", err)
	}
	defer rows.Close()

	var signals []domain.TradeSignal
	for rows.Next() {
		var (
			sig                      domain.TradeSignal
			spreadType               string
			shortStrike, longStrike  float64
			shortDelta, longDelta    float64
			netTheta, netGamma       float64
			dte                      int
			entryPrice               float64
			createdAt                string
		)

		if err := rows.Scan(
			&sig.ID, &sig.Symbol, &sig.Sector, &spreadType,
			&shortStrike, &longStrike, &shortDelta, &longDelta,
			&netTheta, &netGamma, &dte, &entryPrice,
			&sig.PoP, &sig.ExpectedValue, &sig.EVPercent, &sig.CapitalAtRisk,
			&sig.KellyFraction, &sig.TakeProfit, &sig.StopLoss,
			&sig.PairSpreadAtEntry, &sig.EntryNotes, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetSignals: scan row: %w", err)
		}

		sig.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sig.Spread = rebuildSpread(sig.Symbol, domain.SpreadType(spreadType),
			shortStrike, longStrike, shortDelta, longDelta, netTheta, netGamma, dte, entryPrice)
		sig.Provenance = domain.LayerProvenance{
			Fundamentals: true, MeanReversion: true, Greeks: true, Risk: true,
		}
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// PruneSignals implementa ports.Storage.
func (s *SQLiteStorage) PruneSignals(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.PruneSignals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveTrade implementa ports.Storage.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t *domain.Trade) error {
	var exitDate *time.Time
	if t.ExitDate != nil {
		utc := t.ExitDate.UTC()
		exitDate = &utc
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, symbol, sector, spread_type, quantity, entry_date, entry_price,
			 exit_date, exit_price, current_price, unrealized_pnl, realized_pnl,
			 pnl_percent, stop_loss, take_profit, tp_hit, sl_hit,
			 capital_at_risk, status, outcome, expected_value, pop, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			exit_date      = excluded.exit_date,
			exit_price     = excluded.exit_price,
			current_price  = excluded.current_price,
			unrealized_pnl = excluded.unrealized_pnl,
			realized_pnl   = excluded.realized_pnl,
			pnl_percent    = excluded.pnl_percent,
			tp_hit         = excluded.tp_hit,
			sl_hit         = excluded.sl_hit,
			status         = excluded.status,
			outcome        = excluded.outcome
	`,
		t.ID, t.Symbol, t.Sector, string(t.SpreadType), t.Quantity,
		t.EntryDate.UTC(), t.EntryPrice, exitDate, t.ExitPrice, t.CurrentPrice,
		t.UnrealizedPnL, t.RealizedPnL, t.PnLPercent, t.StopLoss, t.TakeProfit,
		boolToInt(t.TakeProfitHit), boolToInt(t.StopLossHit),
		t.CapitalAtRisk, string(t.Status), string(t.Outcome),
		t.ExpectedValue, t.PoP, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %s: %w", t.ID, err)
	}
	return nil
}

// GetOpenTrades implementa ports.Storage.
func (s *SQLiteStorage) GetOpenTrades(ctx context.Context) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `status = ?`, string(domain.TradeStatusOpen))
}

// GetClosedTrades implementa ports.Storage.
func (s *SQLiteStorage) GetClosedTrades(ctx context.Context, since time.Time) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `status = ? AND exit_date >= ?`,
		string(domain.TradeStatusClosed), since.UTC())
}

func (s *SQLiteStorage) queryTrades(ctx context.Context, where string, args ...any) ([]*domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, sector, spread_type, quantity, entry_date, entry_price,
		       exit_date, exit_price, current_price, unrealized_pnl, realized_pnl,
		       pnl_percent, stop_loss, take_profit, tp_hit, sl_hit,
		       capital_at_risk, status, outcome, expected_value, pop, notes
		FROM trades
		WHERE `+where+`
		ORDER BY entry_date DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var (
			t                    domain.Trade
			spreadType           string
			entryDate            string
			exitDate             sql.NullString
			tpHit, slHit         int
			status, outcome      string
		)

		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.Sector, &spreadType, &t.Quantity,
			&entryDate, &t.EntryPrice, &exitDate, &t.ExitPrice, &t.CurrentPrice,
			&t.UnrealizedPnL, &t.RealizedPnL, &t.PnLPercent,
			&t.StopLoss, &t.TakeProfit, &tpHit, &slHit,
			&t.CapitalAtRisk, &status, &outcome,
			&t.ExpectedValue, &t.PoP, &t.Notes,
		); err != nil {
			return nil, fmt.Errorf("storage.queryTrades: scan row: %w", err)
		}

		t.SpreadType = domain.SpreadType(spreadType)
		t.Status = domain.TradeStatus(status)
		t.Outcome = domain.TradeOutcome(outcome)
		t.TakeProfitHit = tpHit == 1
		t.StopLossHit = slHit == 1
		t.EntryDate, _ = time.Parse(time.RFC3339, entryDate)
		if exitDate.Valid {
			if at, err := time.Parse(time.RFC3339, exitDate.String); err == nil {
				t.ExitDate = &at
			}
		}

		trades = append(trades, &t)
	}

	return trades, rows.Err()
}

// SaveScanSummary implementa ports.Storage.
func (s *SQLiteStorage) SaveScanSummary(ctx context.Context, sum ports.ScanSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans
			(started_at, finished_at, universe, passed_l1, passed_l2, passed_l3,
			 signals, skipped, pair_spread)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sum.StartedAt.UTC(), sum.FinishedAt.UTC(), sum.Universe,
		sum.PassedLayer1, sum.PassedLayer2, sum.PassedLayer3,
		sum.Signals, sum.SkippedNoData, sum.PairSpreadValue,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveScanSummary: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// rebuildSpread reconstruye el VerticalSpread desde las patas aplanadas.
// Los thetas de las patas se reparten para que el neto coincida con lo
// guardado; el resto de Greeks por pata no se persiste.
func rebuildSpread(symbol string, spreadType domain.SpreadType,
	shortStrike, longStrike, shortDelta, longDelta, netTheta, netGamma float64,
	dte int, entryPrice float64) domain.VerticalSpread {

	short := domain.OptionQuote{
		Symbol: symbol,
		Strike: shortStrike,
		DTE:    dte,
		Greeks: domain.Greeks{Delta: shortDelta, Theta: -netTheta, Gamma: -netGamma},
	}
	long := domain.OptionQuote{
		Symbol: symbol,
		Strike: longStrike,
		DTE:    dte,
		Greeks: domain.Greeks{Delta: longDelta},
	}

	if spreadType == domain.SpreadDebitCall {
		return domain.NewDebitCallSpread(symbol, long, short, entryPrice)
	}
	return domain.NewCreditPutSpread(symbol, short, long, entryPrice)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
