package repository

// sqlite.go — an illustrative, pure-Go (no cgo) persistence backend,
// schema-identical in spirit to the key layout named in the
// external-interfaces contract: one row per open position keyed by
// position_id, an append-only closed_positions table, one row per
// market's statistics state, and one row per engine's balance.

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"tradecore/internal/portfolio/position"
	"tradecore/internal/statistic"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS open_positions (
	position_id TEXT PRIMARY KEY,
	engine_id   TEXT NOT NULL,
	exchange    TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS closed_positions (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	engine_id TEXT NOT NULL,
	payload   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS statistics (
	market_id TEXT PRIMARY KEY,
	payload   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	engine_id TEXT PRIMARY KEY,
	cash      REAL NOT NULL,
	equity    REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_open_positions_engine ON open_positions(engine_id);
CREATE INDEX IF NOT EXISTS idx_closed_positions_engine ON closed_positions(engine_id);
`

// SQLiteRepository is a supplemental Repository backend, given
// modernc.org/sqlite is already in the dependency pack. It is a single-
// writer store (db.SetMaxOpenConns(1)), consistent with SQLite's
// concurrency model.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database file at path and
// applies the schema.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository.NewSQLiteRepository: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository.NewSQLiteRepository: apply schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) GetOpenPosition(positionID string) (position.Position, error) {
	var payload string
	err := r.db.QueryRow(`SELECT payload FROM open_positions WHERE position_id = ?`, positionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return position.Position{}, ErrNotFound
	}
	if err != nil {
		return position.Position{}, fmt.Errorf("sqlite get open position: %w", err)
	}
	var p position.Position
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return position.Position{}, fmt.Errorf("sqlite decode open position: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SetOpenPosition(p position.Position) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("sqlite encode open position: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO open_positions (position_id, engine_id, exchange, symbol, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(position_id) DO UPDATE SET payload = excluded.payload
	`, p.PositionID, p.EngineID, p.Exchange, p.Symbol, payload)
	if err != nil {
		return fmt.Errorf("sqlite set open position: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveOpenPosition(positionID string) error {
	_, err := r.db.Exec(`DELETE FROM open_positions WHERE position_id = ?`, positionID)
	if err != nil {
		return fmt.Errorf("sqlite remove open position: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetOpenPositions(engineID string, markets []string) ([]position.Position, error) {
	rows, err := r.db.Query(`SELECT payload, exchange, symbol FROM open_positions WHERE engine_id = ?`, engineID)
	if err != nil {
		return nil, fmt.Errorf("sqlite list open positions: %w", err)
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(markets))
	for _, m := range markets {
		wanted[m] = true
	}

	var out []position.Position
	for rows.Next() {
		var payload, exchange, symbol string
		if err := rows.Scan(&payload, &exchange, &symbol); err != nil {
			return nil, fmt.Errorf("sqlite scan open position: %w", err)
		}
		if len(wanted) > 0 && !wanted[MarketKey(exchange, symbol)] {
			continue
		}
		var p position.Position
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("sqlite decode open position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendClosedPosition(engineID string, p position.Position) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("sqlite encode closed position: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO closed_positions (engine_id, payload) VALUES (?, ?)`, engineID, payload)
	if err != nil {
		return fmt.Errorf("sqlite append closed position: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetClosedPositions(engineID string) ([]position.Position, error) {
	rows, err := r.db.Query(`SELECT payload FROM closed_positions WHERE engine_id = ? ORDER BY id ASC`, engineID)
	if err != nil {
		return nil, fmt.Errorf("sqlite list closed positions: %w", err)
	}
	defer rows.Close()

	var out []position.Position
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite scan closed position: %w", err)
		}
		var p position.Position
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("sqlite decode closed position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetStatistics(marketID string) (statistic.State, error) {
	var payload string
	err := r.db.QueryRow(`SELECT payload FROM statistics WHERE market_id = ?`, marketID).Scan(&payload)
	if err == sql.ErrNoRows {
		return statistic.State{}, ErrNotFound
	}
	if err != nil {
		return statistic.State{}, fmt.Errorf("sqlite get statistics: %w", err)
	}
	var st statistic.State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return statistic.State{}, fmt.Errorf("sqlite decode statistics: %w", err)
	}
	return st, nil
}

func (r *SQLiteRepository) SetStatistics(marketID string, state statistic.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sqlite encode statistics: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO statistics (market_id, payload) VALUES (?, ?)
		ON CONFLICT(market_id) DO UPDATE SET payload = excluded.payload
	`, marketID, payload)
	if err != nil {
		return fmt.Errorf("sqlite set statistics: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBalance(engineID string) (Balance, error) {
	var b Balance
	err := r.db.QueryRow(`SELECT cash, equity FROM balances WHERE engine_id = ?`, engineID).Scan(&b.Cash, &b.Equity)
	if err == sql.ErrNoRows {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, fmt.Errorf("sqlite get balance: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) SetBalance(engineID string, b Balance) error {
	_, err := r.db.Exec(`
		INSERT INTO balances (engine_id, cash, equity) VALUES (?, ?, ?)
		ON CONFLICT(engine_id) DO UPDATE SET cash = excluded.cash, equity = excluded.equity
	`, engineID, b.Cash, b.Equity)
	if err != nil {
		return fmt.Errorf("sqlite set balance: %w", err)
	}
	return nil
}
