package extract

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"

	"finetl/internal/etl"
	"finetl/pkg/logger"
	"finetl/pkg/models"
)

// Statement classification keywords, matched against the lowercased text
// of a whole table.
var (
	balanceKeywords = []string{"total assets", "total liabilities", "stockholders"}
	incomeKeywords  = []string{
		"operating expenses", "total operating expenses", "income from operations",
		"net loss", "earnings per share", "comprehensive loss",
	}
)

const (
	StatementBalance = "Balance Sheet"
	StatementIncome  = "Income Statement"
)

// FilingExtractor walks the filings named by a source list and yields one
// record per (line item, period) cell of every recognized statement table.
// It is finite and non-restartable; a new extractor re-reads from the
// start. Files are parsed lazily, one at a time.
type FilingExtractor struct {
	sourceList string
	timeout    time.Duration

	opened  bool
	files   []string
	fileIdx int
	pending []*models.Record
	closed  bool
}

func NewFilingExtractor(sourceList string, timeout time.Duration) *FilingExtractor {
	return &FilingExtractor{sourceList: sourceList, timeout: timeout}
}

// Next returns the next record, or etl.ErrEndOfSource once every filing is
// exhausted.
func (e *FilingExtractor) Next() (*models.Record, error) {
	if e.closed {
		return nil, etl.ErrEndOfSource
	}
	if !e.opened {
		files, err := ReadSourceList(e.sourceList)
		if err != nil {
			return nil, &etl.ExtractionError{Source: e.sourceList, Err: err}
		}
		e.files = files
		e.opened = true
	}

	for len(e.pending) == 0 {
		if e.fileIdx >= len(e.files) {
			return nil, etl.ErrEndOfSource
		}
		path := e.files[e.fileIdx]
		e.fileIdx++

		if kind := DetectFileType(path); kind != "html" {
			logger.Warnf("Skipping unsupported file type %q: %s", kind, path)
			continue
		}
		logger.Infof("Processing file: %s", path)

		recs, err := e.extractFile(path)
		if err != nil {
			return nil, err
		}
		e.pending = recs
	}

	rec := e.pending[0]
	e.pending = e.pending[1:]
	return rec, nil
}

func (e *FilingExtractor) Close() error {
	e.closed = true
	e.pending = nil
	return nil
}

func (e *FilingExtractor) extractFile(path string) ([]*models.Record, error) {
	deadline := time.Time{}
	if e.timeout > 0 {
		deadline = time.Now().Add(e.timeout)
	}

	ticker, filingDate, err := ParseFilename(path)
	if err != nil {
		return nil, &etl.ExtractionError{Source: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &etl.ExtractionError{Source: path, Err: err}
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, &etl.ExtractionError{Source: path, Err: fmt.Errorf("malformed HTML: %w", err)}
	}

	tables := collectTables(doc)
	logger.Infof("Total tables found: %d", len(tables))

	var out []*models.Record
	for i, table := range tables {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, &etl.ExtractionError{Source: path, Err: fmt.Errorf("extraction timed out after %s", e.timeout)}
		}

		rows := tableRows(table)
		stmtType, ok := classify(rows)
		if !ok {
			continue
		}
		logger.Infof("Found %s candidate at table %d (%d rows)", stmtType, i, len(rows))
		out = append(out, meltTable(rows, ticker, filingDate, stmtType)...)
	}
	return out, nil
}

// collectTables gathers every <table> element in document order.
func collectTables(doc *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables
}

// tableRows flattens a table into cell text, one slice per <tr>.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, cellText(c))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

// cellText concatenates the text nodes under a cell with whitespace
// collapsed.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func classify(rows [][]string) (string, bool) {
	var sb strings.Builder
	for _, row := range rows {
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
	}
	text := strings.ToLower(sb.String())

	for _, k := range balanceKeywords {
		if strings.Contains(text, k) {
			return StatementBalance, true
		}
	}
	for _, k := range incomeKeywords {
		if strings.Contains(text, k) {
			return StatementIncome, true
		}
	}
	return "", false
}

// meltTable turns a statement table into tidy records. The first column is
// the line item; the header is rebuilt from the first two rows; data
// starts at the fourth row. Empty cells are dropped here, unparseable
// figures later by the clean-value step.
func meltTable(rows [][]string, ticker, filingDate, stmtType string) []*models.Record {
	rows = dropEmptyColumns(rows)
	if len(rows) < 4 {
		return nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	header := make([]string, width)
	for c := 1; c < width; c++ {
		parts := []string{}
		for r := 0; r < 2 && r < len(rows); r++ {
			if c < len(rows[r]) && rows[r][c] != "" {
				parts = append(parts, rows[r][c])
			}
		}
		header[c] = strings.TrimSpace(strings.Join(parts, " "))
	}
	header = uniqueColumns(header)

	var out []*models.Record
	for _, row := range rows[3:] {
		if len(row) == 0 {
			continue
		}
		lineItem := strings.TrimSpace(row[0])
		if lineItem == "" {
			continue
		}
		for c := 1; c < len(row) && c < width; c++ {
			raw := strings.TrimSpace(row[c])
			if raw == "" || header[c] == "" {
				continue
			}
			rec := models.NewRecord().
				Set(models.FieldTicker, ticker).
				Set(models.FieldFilingDate, filingDate).
				Set(models.FieldStatementType, stmtType).
				Set(models.FieldLineItem, lineItem).
				Set(models.FieldPeriod, header[c]).
				Set(models.FieldValue, raw)
			out = append(out, rec)
		}
	}
	return out
}

// dropEmptyColumns removes columns with no content anywhere. Rows are kept
// in place: the header rebuild and the data offset rely on row positions,
// and blank spacer rows fall out later when their line item is empty.
func dropEmptyColumns(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}
	colUsed := make([]bool, width)
	for _, row := range rows {
		for c, cell := range row {
			if strings.TrimSpace(cell) != "" {
				colUsed[c] = true
			}
		}
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		var nr []string
		for c := 0; c < width; c++ {
			if !colUsed[c] {
				continue
			}
			if c < len(row) {
				nr = append(nr, strings.TrimSpace(row[c]))
			} else {
				nr = append(nr, "")
			}
		}
		out = append(out, nr)
	}
	return out
}

// uniqueColumns suffixes duplicate header names with _1, _2, ... so the
// melt keys stay unique.
func uniqueColumns(cols []string) []string {
	seen := make(map[string]int)
	out := make([]string, len(cols))
	for i, c := range cols {
		if c == "" {
			out[i] = c
			continue
		}
		if n, ok := seen[c]; ok {
			seen[c] = n + 1
			out[i] = fmt.Sprintf("%s_%d", c, n+1)
		} else {
			seen[c] = 0
			out[i] = c
		}
	}
	return out
}
