package load

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"finetl/internal/etl"
	"finetl/pkg/logger"
	"finetl/pkg/models"
	"finetl/pkg/utils"
)

const closeTimeout = 5 * time.Second

const mssqlSchema = `
IF OBJECT_ID('financial_fact_flat', 'U') IS NULL
CREATE TABLE financial_fact_flat (
	ticker         NVARCHAR(20)  NOT NULL,
	filing_date    NVARCHAR(10)  NOT NULL,
	statement_type NVARCHAR(100) NOT NULL,
	line_item      NVARCHAR(255) NOT NULL,
	period         NVARCHAR(255) NOT NULL,
	period_type    NVARCHAR(50),
	end_date       NVARCHAR(50),
	fiscal_year    INT,
	unaudited      BIT,
	value          FLOAT,
	CONSTRAINT pk_fact_flat PRIMARY KEY (ticker, filing_date, statement_type, line_item, period)
)`

// SQLServerLoader writes the tidy facts into one flat table, updating in
// place when the key already exists so re-runs stay idempotent.
type SQLServerLoader struct {
	db *sql.DB
}

func NewSQLServerLoader(db *sql.DB) (*SQLServerLoader, error) {
	if _, err := db.Exec(mssqlSchema); err != nil {
		return nil, &etl.LoadError{Sink: "sqlserver", Err: err}
	}
	return &SQLServerLoader{db: db}, nil
}

func (l *SQLServerLoader) Load(ctx context.Context, batch models.Batch) (int, error) {
	confirmed := 0
	for _, rec := range batch {
		if err := l.upsert(ctx, rec); err != nil {
			return confirmed, &etl.LoadError{Sink: "sqlserver", Err: err}
		}
		confirmed++
	}
	logger.Infof("SQL Server: wrote %d facts", confirmed)
	return confirmed, nil
}

func (l *SQLServerLoader) Close() error {
	return l.db.Close()
}

func (l *SQLServerLoader) upsert(ctx context.Context, rec *models.Record) error {
	ticker := rec.String(models.FieldTicker)
	filingDate := rec.String(models.FieldFilingDate)
	stmtType := rec.String(models.FieldStatementType)
	lineItem := rec.String(models.FieldLineItem)
	period := rec.String(models.FieldPeriod)

	var value interface{}
	if raw, ok := rec.Get(models.FieldValue); ok {
		if f, isNum := utils.ToFloat(raw); isNum {
			value = f
		}
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

	var exists int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM financial_fact_flat
		 WHERE ticker = @p1 AND filing_date = @p2 AND statement_type = @p3 AND line_item = @p4 AND period = @p5`,
		ticker, filingDate, stmtType, lineItem, period).Scan(&exists)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = l.db.ExecContext(ctx,
			`INSERT INTO financial_fact_flat
			 (ticker, filing_date, statement_type, line_item, period, period_type, end_date, fiscal_year, unaudited, value)
			 VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10)`,
			ticker, filingDate, stmtType, lineItem, period,
			rec.String(models.FieldPeriodType), rec.String(models.FieldEndDate),
			fiscalYear, unaudited, value)
		return err
	case err == nil:
		_, err = l.db.ExecContext(ctx,
			`UPDATE financial_fact_flat
			 SET period_type = @p6, end_date = @p7, fiscal_year = @p8, unaudited = @p9, value = @p10
			 WHERE ticker = @p1 AND filing_date = @p2 AND statement_type = @p3 AND line_item = @p4 AND period = @p5`,
			ticker, filingDate, stmtType, lineItem, period,
			rec.String(models.FieldPeriodType), rec.String(models.FieldEndDate),
			fiscalYear, unaudited, value)
		return err
	default:
		return err
	}
}
