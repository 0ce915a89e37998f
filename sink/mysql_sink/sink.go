// Package mysql_sink loads finalized results into a MySQL table, one
// table per task. The table is created on demand from the task's
// column schema and rows are written in batched multi-row inserts with
// an upsert on the group key, so re-running a job converges instead of
// duplicating.
package mysql_sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"

	"github.com/ridelab/ridefold/tasks"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config defines MySQL connection and load parameters.
type Config struct {
	DSN       string
	Table     string
	Truncate  bool
	BatchSize int
}

func (c *Config) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 2000
	}
}

// Sink writes task results into MySQL.
type Sink struct {
	db  *sql.DB
	cfg Config
}

// Open connects and pings the target database.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	cfg.withDefaults()
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Sink{db: db, cfg: cfg}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB, cfg Config) *Sink {
	cfg.withDefaults()
	return &Sink{db: db, cfg: cfg}
}

func (s *Sink) Close() error { return s.db.Close() }

// Write creates the target table if needed and loads all results in
// one transaction.
func (s *Sink) Write(ctx context.Context, task tasks.Task, results []tasks.Result) error {
	table := s.cfg.Table
	if table == "" {
		table = "ridefold_" + task.Name()
	}
	qTable, err := quoteIdentifier(table)
	if err != nil {
		return err
	}
	cols := task.Columns()
	qCols := make([]string, len(cols))
	for i, col := range cols {
		if qCols[i], err = quoteIdentifier(col.Name); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(qTable, qCols, cols)); err != nil {
		return err
	}
	if s.cfg.Truncate {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", qTable)); err != nil {
			return err
		}
	}
	if err := insertBatches(ctx, tx, qTable, qCols, cols, results, s.cfg.BatchSize); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"task":  task.Name(),
		"table": table,
		"rows":  len(results),
	}).Info("mysql sink loaded")
	return nil
}

func createTableSQL(qTable string, qCols []string, cols []tasks.Column) string {
	defs := make([]string, 0, len(cols)+1)
	var keys []string
	for i, col := range cols {
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL", qCols[i], col.SQLType))
		if col.Key {
			keys = append(keys, qCols[i])
		}
	}
	if len(keys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qTable, strings.Join(defs, ", "))
}

func insertBatches(ctx context.Context, tx *sql.Tx, qTable string, qCols []string, cols []tasks.Column, results []tasks.Result, batchSize int) error {
	var updates []string
	for i, col := range cols {
		if !col.Key {
			updates = append(updates, fmt.Sprintf("%s=VALUES(%s)", qCols[i], qCols[i]))
		}
	}
	rowSQL := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		args := make([]interface{}, 0, len(batch)*len(cols))
		valueSQL := make([]string, 0, len(batch))
		for _, res := range batch {
			if len(res.Columns) != len(cols) {
				return fmt.Errorf("result for key %q has %d columns, want %d", res.Key, len(res.Columns), len(cols))
			}
			valueSQL = append(valueSQL, rowSQL)
			for _, v := range res.Columns {
				args = append(args, v)
			}
		}

		sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			qTable, strings.Join(qCols, ", "), strings.Join(valueSQL, ","))
		if len(updates) > 0 {
			sqlStr += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return nil
}

func quoteIdentifier(s string) (string, error) {
	if !identifierRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier: %s", s)
	}
	return "`" + s + "`", nil
}
