package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"metro-housing/models"
)

// maxParams bounds the bind parameters of a single INSERT.
const maxParams = 900

// SQLWriter mirrors a dataset table into PostgreSQL or SQLite. Every column
// is stored as TEXT; missing cells become NULL. The target table is rebuilt
// on each write because the merged schema changes between runs.
type SQLWriter struct {
	db          *sql.DB
	driver      string
	placeholder func(n int) string
}

// NewPostgresWriter opens a connection to PostgreSQL and waits for it to
// accept connections.
func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &SQLWriter{
		db:          db,
		driver:      "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}, nil
}

// NewSQLiteWriter opens (or creates) a SQLite database file.
func NewSQLiteWriter(path string) (*SQLWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &SQLWriter{
		db:          db,
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}, nil
}

// Open returns the writer for the configured driver.
func Open(driver, dsn string) (*SQLWriter, error) {
	switch driver {
	case "postgres":
		return NewPostgresWriter(dsn)
	case "sqlite":
		return NewSQLiteWriter(dsn)
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

// Write replaces the named table with the contents of t in one transaction.
func (w *SQLWriter) Write(table string, t *models.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s: write %s: table has no columns", w.driver, table)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", w.driver, err)
	}
	defer tx.Rollback()

	if err := w.recreate(tx, table, t.Columns); err != nil {
		return fmt.Errorf("%s: recreate %s: %w", w.driver, table, err)
	}

	batchSize := maxParams / len(t.Columns)
	if batchSize < 1 {
		batchSize = 1
	}
	for i := 0; i < len(t.Rows); i += batchSize {
		end := i + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := w.insertBatch(tx, table, t.Columns, t.Rows[i:end]); err != nil {
			return fmt.Errorf("%s: insert into %s: %w", w.driver, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", w.driver, err)
	}
	return nil
}

func (w *SQLWriter) recreate(tx *sql.Tx, table string, columns []string) error {
	if _, err := tx.Exec("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(table)); err != nil {
		return err
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pq.QuoteIdentifier(c) + " TEXT"
	}
	_, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)",
		pq.QuoteIdentifier(table), strings.Join(defs, ", ")))
	return err
}

func (w *SQLWriter) insertBatch(tx *sql.Tx, table string, columns []string, batch [][]models.Cell) error {
	if len(batch) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*len(columns))
	n := 0
	for _, row := range batch {
		ph := make([]string, len(columns))
		for i := range columns {
			n++
			ph[i] = w.placeholder(n)
			cell := models.Null()
			if i < len(row) {
				cell = row[i]
			}
			valueArgs = append(valueArgs, cell)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		pq.QuoteIdentifier(table), strings.Join(quoted, ","), strings.Join(valueStrings, ","))
	_, err := tx.Exec(query, valueArgs...)
	return err
}

// FetchAll reads the named table back in insertion order.
func (w *SQLWriter) FetchAll(table string) (*models.Table, error) {
	rows, err := w.db.Query("SELECT * FROM " + pq.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", w.driver, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", w.driver, err)
	}

	out := models.NewTable(columns...)
	for rows.Next() {
		row := make([]models.Cell, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", w.driver, err)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

func (w *SQLWriter) Close() error {
	return w.db.Close()
}
