package load

import (
	"context"
	"fmt"

	"finetl/pkg/database"
	"finetl/pkg/logger"
)

// QualityCheck is one named count query over the OLAP/OLTP pair. A
// non-zero count is a violation.
type QualityCheck struct {
	Name  string
	Query string
}

var qualityChecks = []QualityCheck{
	{"future_dates",
		`SELECT COUNT(*) FROM date_dim WHERE date > DATE('now')`},
	{"duplicate_fact_ids",
		`SELECT COUNT(*) FROM (
			SELECT fact_id, COUNT(*) c FROM fact_financials GROUP BY fact_id HAVING c > 1
		)`},
	{"revenue_non_positive",
		`SELECT COUNT(*) FROM fact_financials ff
		 JOIN oltp.line_item li ON ff.line_item_id = li.line_item_id
		 WHERE li.name = 'Revenue' AND ff.value <= 0`},
	{"missing_required_metrics",
		`SELECT COUNT(*) FROM (
			SELECT company_key, date_key FROM fact_financials
			GROUP BY company_key, date_key
			HAVING SUM(CASE WHEN line_item_id IS NULL THEN 1 ELSE 0 END) > 0
		)`},
	{"orphaned_company_refs",
		`SELECT COUNT(*) FROM fact_financials ff
		 LEFT JOIN company_dim cd ON ff.company_key = cd.company_key
		 WHERE cd.company_key IS NULL`},
}

// QualityReport maps check name to violation count.
type QualityReport map[string]int

// Clean reports whether every check passed.
func (r QualityReport) Clean() bool {
	for _, n := range r {
		if n > 0 {
			return false
		}
	}
	return true
}

// RunQualityChecks runs the post-load checks against the OLAP database
// with the OLTP database attached.
func RunQualityChecks(ctx context.Context, olapPath, oltpPath string) (QualityReport, error) {
	db, err := database.ConnectSQLite(olapPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := attachOLTP(ctx, db, oltpPath); err != nil {
		return nil, err
	}

	report := make(QualityReport, len(qualityChecks))
	for _, check := range qualityChecks {
		var n int
		if err := db.QueryRowContext(ctx, check.Query).Scan(&n); err != nil {
			return nil, fmt.Errorf("quality check %s: %w", check.Name, err)
		}
		report[check.Name] = n
		if n > 0 {
			logger.Warnf("Quality check %s: %d violations", check.Name, n)
		}
	}
	logger.Infof("Quality check result: %v", map[string]int(report))
	return report, nil
}
