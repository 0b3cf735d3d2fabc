package load

import (
	"context"
	"database/sql"
	"fmt"

	"finetl/pkg/database"
	"finetl/pkg/logger"
)

var olapSchema = []string{
	`DROP TABLE IF EXISTS fact_financials`,
	`DROP TABLE IF EXISTS company_dim`,
	`DROP TABLE IF EXISTS date_dim`,
	`DROP TABLE IF EXISTS statement_type_dim`,
	`CREATE TABLE company_dim (
		company_key  INTEGER PRIMARY KEY,
		ticker       TEXT,
		company_name TEXT
	)`,
	`CREATE TABLE date_dim (
		date_key INTEGER PRIMARY KEY,
		date     TEXT,
		year     INTEGER,
		quarter  INTEGER,
		month    INTEGER,
		day      INTEGER
	)`,
	`CREATE TABLE statement_type_dim (
		statement_type_key INTEGER PRIMARY KEY,
		statement_type     TEXT
	)`,
	`CREATE TABLE fact_financials (
		fact_id            INTEGER PRIMARY KEY AUTOINCREMENT,
		company_key        INTEGER REFERENCES company_dim(company_key),
		date_key           INTEGER REFERENCES date_dim(date_key),
		statement_type_key INTEGER REFERENCES statement_type_dim(statement_type_key),
		line_item_id       INTEGER,
		value              REAL
	)`,
}

var olapPopulate = []string{
	`INSERT OR REPLACE INTO company_dim (company_key, ticker, company_name)
	 SELECT company_id, ticker, ticker FROM oltp.company`,
	`INSERT OR REPLACE INTO date_dim (date_key, date, year, quarter, month, day)
	 SELECT DISTINCT
		CAST(strftime('%Y%m%d', filing_date) AS INT),
		filing_date,
		CAST(strftime('%Y', filing_date) AS INT),
		((CAST(strftime('%m', filing_date) AS INT)-1)/3)+1,
		CAST(strftime('%m', filing_date) AS INT),
		CAST(strftime('%d', filing_date) AS INT)
	 FROM oltp.filing`,
	`INSERT OR REPLACE INTO statement_type_dim (statement_type_key, statement_type)
	 SELECT statement_type_id, name FROM oltp.statement_type`,
	`INSERT INTO fact_financials (company_key, date_key, statement_type_key, line_item_id, value)
	 SELECT
		fl.company_id,
		CAST(strftime('%Y%m%d', fl.filing_date) AS INT),
		ff.statement_type_id,
		ff.line_item_id,
		ff.value
	 FROM oltp.financial_fact ff
	 JOIN oltp.filing fl ON ff.filing_id = fl.filing_id`,
}

// BuildOLAP rebuilds the star schema in the OLAP database from the OLTP
// database. The OLAP side is dropped and recreated on every build.
func BuildOLAP(ctx context.Context, olapPath, oltpPath string) error {
	db, err := database.ConnectSQLite(olapPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := attachOLTP(ctx, db, oltpPath); err != nil {
		return err
	}

	for _, stmt := range olapSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("olap schema: %w", err)
		}
	}
	for _, stmt := range olapPopulate {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("olap populate: %w", err)
		}
	}

	logger.Infof("OLAP schema created and populated at %s", olapPath)
	return nil
}

func attachOLTP(ctx context.Context, db *sql.DB, oltpPath string) error {
	// ATTACH does not take bind parameters for the path.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE '%s' AS oltp", oltpPath)); err != nil {
		return fmt.Errorf("attach oltp database %q: %w", oltpPath, err)
	}
	return nil
}
