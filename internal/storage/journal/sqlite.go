package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/ashare/internal/core"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol       TEXT    NOT NULL,
	strategy     TEXT    NOT NULL,
	action       TEXT    NOT NULL,
	price        REAL    NOT NULL,
	quantity     INTEGER NOT NULL,
	reason       TEXT    NOT NULL,
	generated_at INTEGER,
	recorded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, generated_at);

CREATE TABLE IF NOT EXISTS executions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT    NOT NULL,
	strategy    TEXT    NOT NULL,
	action      TEXT    NOT NULL,
	quantity    INTEGER NOT NULL,
	price       REAL    NOT NULL,
	order_id    TEXT    NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT    NOT NULL,
	executed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_symbol ON executions(symbol, executed_at);
`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and creates
// the journal tables.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; ":memory:" databases also need a single
	// connection to be shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSignal inserts a new signal into the database.
func (s *SQLiteStore) SaveSignal(ctx context.Context, sig core.Signal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (symbol, strategy, action, price, quantity, reason, generated_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, sig.Strategy, string(sig.Action), sig.Price, sig.Quantity, sig.Reason,
		nullMillis(sig.GeneratedAt), s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: insert signal: %w", err)
	}
	return res.LastInsertId()
}

// ListSignals returns signals matching filter, oldest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, filter ListFilter) ([]Record, error) {
	where, args := whereClause(filter, "generated_at")
	query := `SELECT id, symbol, strategy, action, price, quantity, reason, generated_at, recorded_at
	          FROM signals` + where + ` ORDER BY id` + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list signals: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			action    string
			generated sql.NullInt64
			recorded  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Signal.Symbol, &rec.Signal.Strategy, &action,
			&rec.Signal.Price, &rec.Signal.Quantity, &rec.Signal.Reason, &generated, &recorded); err != nil {
			return nil, fmt.Errorf("journal: scan signal: %w", err)
		}
		rec.Signal.Action = core.Action(action)
		if generated.Valid {
			rec.Signal.GeneratedAt = time.UnixMilli(generated.Int64)
		}
		rec.RecordedAt = time.UnixMilli(recorded)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountSignals returns the number of signals matching filter.
func (s *SQLiteStore) CountSignals(ctx context.Context, filter ListFilter) (int, error) {
	where, args := whereClause(filter, "generated_at")
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count signals: %w", err)
	}
	return n, nil
}

// SaveExecution inserts an execution into the database.
func (s *SQLiteStore) SaveExecution(ctx context.Context, exec Execution) (int64, error) {
	at := exec.ExecutedAt
	if at.IsZero() {
		at = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (symbol, strategy, action, quantity, price, order_id, success, error, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.Symbol, exec.Strategy, string(exec.Action), exec.Quantity, exec.Price, exec.OrderID,
		boolInt(exec.Success), exec.Error, at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: insert execution: %w", err)
	}
	return res.LastInsertId()
}

// ListExecutions returns executions matching filter, oldest first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, filter ListFilter) ([]Execution, error) {
	where, args := whereClause(filter, "executed_at")
	query := `SELECT id, symbol, strategy, action, quantity, price, order_id, success, error, executed_at
	          FROM executions` + where + ` ORDER BY id` + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var (
			e        Execution
			action   string
			executed int64
		)
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Strategy, &action, &e.Quantity, &e.Price,
			&e.OrderID, &e.Success, &e.Error, &executed); err != nil {
			return nil, fmt.Errorf("journal: scan execution: %w", err)
		}
		e.Action = core.Action(action)
		e.ExecutedAt = time.UnixMilli(executed)
		out = append(out, e)
	}
	return out, rows.Err()
}

func whereClause(filter ListFilter, timeCol string) (string, []any) {
	var conds []string
	var args []any
	if filter.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Strategy != "" {
		conds = append(conds, "strategy = ?")
		args = append(args, filter.Strategy)
	}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, string(filter.Action))
	}
	if !filter.From.IsZero() {
		conds = append(conds, timeCol+" >= ?")
		args = append(args, filter.From.UnixMilli())
	}
	if !filter.To.IsZero() {
		conds = append(conds, timeCol+" <= ?")
		args = append(args, filter.To.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitClause(filter ListFilter) string {
	switch {
	case filter.Limit > 0 && filter.Offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	case filter.Limit > 0:
		return fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}
	return ""
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
