// Package stimuli decodes the narration stimulus file into the ordered set
// of records a survey session draws from.
//
// The input format is delimited text (comma-separated, double-quote escaped,
// UTF-8). Column roles are auto-detected from the header row so that files
// exported from different tools keep working without configuration: the id
// and text columns are found by name with a positional fallback, and an
// optional enabled column filters rows out of the decoded table.
package stimuli

// Record is one decoded data row: the resolved id/text pair plus every
// column value keyed by trimmed header name.
type Record struct {
	ID     string
	Text   string
	Fields map[string]string
}

// Table is the ordered sequence of records surviving decoding and
// filtering, in original row order. It is produced once per input blob and
// treated as immutable afterward.
type Table struct {
	Headers []string
	Records []Record
}

// Len returns the number of retained records.
func (t Table) Len() int {
	return len(t.Records)
}

// IsEmpty reports whether decoding produced no usable records. Callers are
// expected to treat an empty table as a configuration error; the decoder
// itself never fails.
func (t Table) IsEmpty() bool {
	return len(t.Records) == 0
}
