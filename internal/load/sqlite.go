// Package load writes transformed fact records to the configured sinks
// and derives the OLAP star schema.
package load

import (
	"context"
	"database/sql"
	"fmt"

	"finetl/internal/etl"
	"finetl/pkg/logger"
	"finetl/pkg/models"
	"finetl/pkg/utils"
)

const oltpSchema = `
CREATE TABLE IF NOT EXISTS company (
	company_id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker     TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS filing (
	filing_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id  INTEGER NOT NULL REFERENCES company(company_id),
	filing_date TEXT NOT NULL,
	fiscal_year INTEGER,
	unaudited   INTEGER,
	UNIQUE(company_id, filing_date, fiscal_year, unaudited)
);
CREATE TABLE IF NOT EXISTS statement_type (
	statement_type_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS line_item (
	line_item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS financial_fact (
	fact_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	filing_id         INTEGER NOT NULL REFERENCES filing(filing_id),
	statement_type_id INTEGER NOT NULL REFERENCES statement_type(statement_type_id),
	line_item_id      INTEGER NOT NULL REFERENCES line_item(line_item_id),
	period_type       TEXT,
	end_date          TEXT,
	value             REAL
);
`

// SQLiteLoader writes facts into the normalized OLTP schema: dimension
// rows (company, statement type, line item, filing) are created on first
// sight, facts are appended within one transaction per batch.
type SQLiteLoader struct {
	db *sql.DB

	companies  map[string]int64
	statements map[string]int64
	lineItems  map[string]int64
	filings    map[filingKey]int64
}

type filingKey struct {
	companyID  int64
	filingDate string
	fiscalYear int
	unaudited  bool
}

func NewSQLiteLoader(db *sql.DB) (*SQLiteLoader, error) {
	if _, err := db.Exec(oltpSchema); err != nil {
		return nil, &etl.LoadError{Sink: "sqlite", Err: fmt.Errorf("schema setup: %w", err)}
	}
	return &SQLiteLoader{
		db:         db,
		companies:  make(map[string]int64),
		statements: make(map[string]int64),
		lineItems:  make(map[string]int64),
		filings:    make(map[filingKey]int64),
	}, nil
}

func (l *SQLiteLoader) Load(ctx context.Context, batch models.Batch) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &etl.LoadError{Sink: "sqlite", Err: err}
	}
	defer tx.Rollback()

	for _, rec := range batch {
		if err := l.insertFact(ctx, tx, rec); err != nil {
			return 0, &etl.LoadError{Sink: "sqlite", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &etl.LoadError{Sink: "sqlite", Err: err}
	}
	logger.Infof("SQLite: committed %d facts", len(batch))
	return len(batch), nil
}

func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

func (l *SQLiteLoader) insertFact(ctx context.Context, tx *sql.Tx, rec *models.Record) error {
	ticker := rec.String(models.FieldTicker)
	if ticker == "" {
		return fmt.Errorf("record missing ticker")
	}
	stmtType := rec.String(models.FieldStatementType)
	lineItem := rec.String(models.FieldLineItem)
	if stmtType == "" || lineItem == "" {
		return fmt.Errorf("record missing statement type or line item")
	}

	companyID, err := l.dimensionID(ctx, tx, l.companies, ticker,
		"INSERT OR IGNORE INTO company (ticker) VALUES (?)",
		"SELECT company_id FROM company WHERE ticker = ?")
	if err != nil {
		return err
	}
	stmtID, err := l.dimensionID(ctx, tx, l.statements, stmtType,
		"INSERT OR IGNORE INTO statement_type (name) VALUES (?)",
		"SELECT statement_type_id FROM statement_type WHERE name = ?")
	if err != nil {
		return err
	}
	liID, err := l.dimensionID(ctx, tx, l.lineItems, lineItem,
		"INSERT OR IGNORE INTO line_item (name) VALUES (?)",
		"SELECT line_item_id FROM line_item WHERE name = ?")
	if err != nil {
		return err
	}

	fiscalYear := 0
	if fy, ok := rec.Get(models.FieldFiscalYear); ok {
		if n, isInt := fy.(int); isInt {
			fiscalYear = n
		}
	}
	unaudited := false
	if u, ok := rec.Get(models.FieldUnaudited); ok {
		if b, isBool := u.(bool); isBool {
			unaudited = b
		}
	}

	filingID, err := l.filingID(ctx, tx, companyID, rec.String(models.FieldFilingDate), fiscalYear, unaudited)
	if err != nil {
		return err
	}

	var value interface{}
	if raw, ok := rec.Get(models.FieldValue); ok {
		if f, isNum := utils.ToFloat(raw); isNum {
			value = f
		}
	}

	endDate := rec.String(models.FieldEndDate)
	if t, err := utils.ParseDate(endDate); err == nil {
		endDate = t.Format("2006-01-02")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO financial_fact (filing_id, statement_type_id, line_item_id, period_type, end_date, value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		filingID, stmtID, liID, rec.String(models.FieldPeriodType), endDate, value)
	return err
}

// dimensionID resolves a name to its surrogate key, inserting the row on
// first sight and caching the key for the rest of the run.
func (l *SQLiteLoader) dimensionID(ctx context.Context, tx *sql.Tx, cache map[string]int64, name, insertSQL, selectSQL string) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	if _, err := tx.ExecContext(ctx, insertSQL, name); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, selectSQL, name).Scan(&id); err != nil {
		return 0, err
	}
	cache[name] = id
	return id, nil
}

func (l *SQLiteLoader) filingID(ctx context.Context, tx *sql.Tx, companyID int64, filingDate string, fiscalYear int, unaudited bool) (int64, error) {
	key := filingKey{companyID, filingDate, fiscalYear, unaudited}
	if id, ok := l.filings[key]; ok {
		return id, nil
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO filing (company_id, filing_date, fiscal_year, unaudited) VALUES (?, ?, ?, ?)",
		companyID, filingDate, fiscalYear, unaudited); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT filing_id FROM filing WHERE company_id = ? AND filing_date = ? AND fiscal_year = ? AND unaudited = ?",
		companyID, filingDate, fiscalYear, unaudited).Scan(&id); err != nil {
		return 0, err
	}
	l.filings[key] = id
	return id, nil
}
