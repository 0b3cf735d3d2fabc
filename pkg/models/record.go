// Package models defines the data types moved through the pipeline.
package models

// Canonical field names for tidy financial fact records. Extraction emits
// records with exactly these fields; the transform steps fill in the
// derived ones.
const (
	FieldTicker        = "ticker"
	FieldFilingDate    = "filing_date"
	FieldStatementType = "statement_type"
	FieldLineItem      = "line_item"
	FieldPeriod        = "period"
	FieldPeriodType    = "period_type"
	FieldEndDate       = "end_date"
	FieldFiscalYear    = "fiscal_year"
	FieldUnaudited     = "unaudited"
	FieldValue         = "value"
)

// Record is an ordered mapping of field name to value. Field names are
// unique within a record; Set on an existing field overwrites in place and
// keeps the original position. Record shape may vary between batches.
type Record struct {
	fields []string
	values map[string]interface{}
}

func NewRecord() *Record {
	return &Record{values: make(map[string]interface{})}
}

func (r *Record) Set(field string, value interface{}) *Record {
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = value
	return r
}

func (r *Record) Get(field string) (interface{}, bool) {
	v, ok := r.values[field]
	return v, ok
}

// String returns the field value rendered as a string, or "" when absent
// or nil.
func (r *Record) String(field string) string {
	v, ok := r.values[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *Record) Len() int {
	return len(r.fields)
}

// Clone returns a shallow copy. Steps must not mutate their input record;
// they clone and modify the copy.
func (r *Record) Clone() *Record {
	c := &Record{
		fields: make([]string, len(r.fields)),
		values: make(map[string]interface{}, len(r.values)),
	}
	copy(c.fields, r.fields)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Batch is an ordered sequence of records processed together. Its lifecycle
// is one pass through the transform steps and the loader.
type Batch []*Record
