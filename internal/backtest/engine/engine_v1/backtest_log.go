package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DiagnosticsFileName is the parquet export of dropped signals.
const DiagnosticsFileName = "diagnostics.parquet"

// BacktestLog implements log.Log in an in-memory DuckDB database.
// The engine stores every dropped signal here, in strategy declaration order.
type BacktestLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ log.Log = (*BacktestLog)(nil)

// NewBacktestLog creates a new instance of BacktestLog.
func NewBacktestLog(logger *logger.Logger) (*BacktestLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open diagnostics database", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to connect to diagnostics database", err)
	}

	logStorage := &BacktestLog{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := logStorage.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return logStorage, nil
}

// Log implements log.Log.
func (l *BacktestLog) Log(entry log.LogEntry) error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "backtest log or database is nil")
	}

	var fieldsJSON string

	if len(entry.Fields) > 0 {
		fieldsBytes, err := json.Marshal(entry.Fields)
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to marshal fields to JSON", err)
		}

		fieldsJSON = string(fieldsBytes)
	}

	_, err := l.sq.
		Insert("diagnostics").
		Columns("timestamp", "strategy", "symbol", "level", "stage", "message", "fields").
		Values(entry.Timestamp, entry.Strategy, entry.Symbol, string(entry.Level), string(entry.Stage), entry.Message, fieldsJSON).
		RunWith(l.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert diagnostic", err)
	}

	return nil
}

// GetLogs implements log.Log. Entries come back in insertion order.
func (l *BacktestLog) GetLogs() ([]log.LogEntry, error) {
	return l.query(nil)
}

// GetStrategyLogs returns the entries recorded for one strategy.
func (l *BacktestLog) GetStrategyLogs(strategy string) ([]log.LogEntry, error) {
	return l.query(squirrel.Eq{"strategy": strategy})
}

// Count returns the number of entries per strategy.
func (l *BacktestLog) Count() (map[string]int, error) {
	if l == nil || l.db == nil {
		return nil, errors.New(errors.ErrCodeBacktestInitFailed, "backtest log or database is nil")
	}

	rows, err := l.sq.
		Select("strategy", "COUNT(*)").
		From("diagnostics").
		GroupBy("strategy").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count diagnostics", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			strategy string
			count    int
		)

		if err := rows.Scan(&strategy, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan diagnostic count", err)
		}

		counts[strategy] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating diagnostic counts", err)
	}

	return counts, nil
}

func (l *BacktestLog) query(where squirrel.Sqlizer) ([]log.LogEntry, error) {
	if l == nil || l.db == nil {
		return nil, errors.New(errors.ErrCodeBacktestInitFailed, "backtest log or database is nil")
	}

	selectQuery := l.sq.
		Select("timestamp", "strategy", "symbol", "level", "stage", "message", "fields").
		From("diagnostics").
		OrderBy("id ASC")

	if where != nil {
		selectQuery = selectQuery.Where(where)
	}

	rows, err := selectQuery.RunWith(l.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query diagnostics", err)
	}
	defer rows.Close()

	var entries []log.LogEntry

	for rows.Next() {
		var (
			entry      log.LogEntry
			level      string
			stage      string
			fieldsJSON sql.NullString
		)

		err := rows.Scan(&entry.Timestamp, &entry.Strategy, &entry.Symbol, &level, &stage, &entry.Message, &fieldsJSON)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan diagnostic", err)
		}

		entry.Level = types.LogLevel(level)
		entry.Stage = types.DropStage(stage)

		if fieldsJSON.Valid && fieldsJSON.String != "" {
			var fields map[string]string
			if err := json.Unmarshal([]byte(fieldsJSON.String), &fields); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to unmarshal fields from JSON", err)
			}

			entry.Fields = fields
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating diagnostics", err)
	}

	return entries, nil
}

// Write exports the diagnostics to folder/diagnostics.parquet and returns the file path.
func (l *BacktestLog) Write(folder string) (string, error) {
	if l == nil || l.db == nil || l.logger == nil {
		return "", errors.New(errors.ErrCodeBacktestInitFailed, "backtest log, database, or logger is nil")
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create directory", err)
	}

	path := filepath.Join(folder, DiagnosticsFileName)

	_, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * EXCLUDE (id) FROM diagnostics ORDER BY id) TO '%s' (FORMAT PARQUET)`, path))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export diagnostics to parquet", err)
	}

	l.logger.Debug("Exported diagnostics to parquet", zap.String("path", path))

	return path, nil
}

// Cleanup drops every entry and restarts the id sequence.
func (l *BacktestLog) Cleanup() error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "backtest log or database is nil")
	}

	_, err := l.db.Exec(`
		DROP TABLE IF EXISTS diagnostics;
		DROP SEQUENCE IF EXISTS diagnostic_id_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to cleanup diagnostics table", err)
	}

	return l.initialize()
}

// Close closes the database connection.
func (l *BacktestLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	return l.db.Close()
}

func (l *BacktestLog) initialize() error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "backtest log or database is nil")
	}

	_, err := l.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS diagnostic_id_seq;
		CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY DEFAULT nextval('diagnostic_id_seq'),
			timestamp TIMESTAMP,
			strategy TEXT,
			symbol TEXT,
			level TEXT,
			stage TEXT,
			message TEXT,
			fields TEXT
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create diagnostics table", err)
	}

	return nil
}
