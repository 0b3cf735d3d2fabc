// Package transform holds the ordered record-level transformation steps
// that turn raw melted table cells into loadable financial facts.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"finetl/internal/etl"
	"finetl/pkg/models"
	"finetl/pkg/utils"
)

var (
	dedupSuffix = regexp.MustCompile(`_\d+$`)
	monthDate   = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s*\d{4}`)
	bareYear    = regexp.MustCompile(`\d{4}`)
)

// DefaultSteps is the standard chain applied to filing records, in order.
func DefaultSteps() []etl.Step {
	return []etl.Step{
		NormalizePeriod(),
		CleanValue(),
		ParsePeriod(),
	}
}

// NormalizePeriod strips the _N suffixes added when duplicate period
// columns were made unique during extraction.
func NormalizePeriod() etl.Step {
	return etl.Step{
		Name: "normalize-period",
		Apply: func(rec *models.Record) (*models.Record, error) {
			period, ok := rec.Get(models.FieldPeriod)
			if !ok {
				return nil, fmt.Errorf("missing field %q", models.FieldPeriod)
			}
			s, _ := period.(string)
			out := rec.Clone()
			out.Set(models.FieldPeriod, dedupSuffix.ReplaceAllString(s, ""))
			return out, nil
		},
	}
}

// CleanValue parses the raw figure into a float64. Cells that hold no
// parseable number (footnote markers, stray labels) are dropped, matching
// the tidy frame's dropna. A record without a value field at all is an
// error.
func CleanValue() etl.Step {
	return etl.Step{
		Name: "clean-value",
		Apply: func(rec *models.Record) (*models.Record, error) {
			raw, ok := rec.Get(models.FieldValue)
			if !ok {
				return nil, fmt.Errorf("missing field %q", models.FieldValue)
			}
			switch v := raw.(type) {
			case float64:
				return rec, nil
			case string:
				f, err := utils.ParseNumber(v)
				if err != nil {
					return nil, nil
				}
				out := rec.Clone()
				out.Set(models.FieldValue, f)
				return out, nil
			default:
				return nil, fmt.Errorf("value has unsupported type %T", raw)
			}
		},
	}
}

// ParsePeriod derives period type, end date, fiscal year and the
// unaudited flag from the period column text.
func ParsePeriod() etl.Step {
	return etl.Step{
		Name: "parse-period",
		Apply: func(rec *models.Record) (*models.Record, error) {
			period, ok := rec.Get(models.FieldPeriod)
			if !ok {
				return nil, fmt.Errorf("missing field %q", models.FieldPeriod)
			}
			s, _ := period.(string)

			periodType := "Point-in-Time"
			switch {
			case strings.Contains(s, "Three Months"):
				periodType = "Three Months"
			case strings.Contains(s, "Six Months"):
				periodType = "Six Months"
			case strings.Contains(s, "Year Ended"):
				periodType = "Year Ended"
			}

			var endDate string
			var fiscalYear int
			if m := monthDate.FindString(s); m != "" {
				endDate = m
				if y := bareYear.FindString(m); y != "" {
					fiscalYear, _ = strconv.Atoi(y)
				}
			} else if y := bareYear.FindString(s); y != "" {
				fiscalYear, _ = strconv.Atoi(y)
				endDate = y
			}

			out := rec.Clone()
			out.Set(models.FieldPeriodType, periodType)
			out.Set(models.FieldEndDate, endDate)
			out.Set(models.FieldFiscalYear, fiscalYear)
			out.Set(models.FieldUnaudited, strings.Contains(strings.ToLower(s), "unaudited"))
			return out, nil
		},
	}
}
