package stimuli

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Decode converts raw delimited text into a Table.
//
// The parser is a two-state machine over the normalized input: outside
// quotes a comma ends the field and a newline ends the row; inside quotes
// every character is literal, with a doubled quote decoding to one literal
// quote. Malformed quoting never fails: an unterminated quoted field at end
// of input flushes whatever accumulated. Decoding is lenient by design; see
// the package tests for the exact recovery behavior.
//
// The first row is the header row. Headers and cell values are trimmed of
// surrounding whitespace; cells missing from short rows map to the empty
// string. A row is retained only when its resolved id and text values are
// non-empty, and, when an enabled column is present, its value is truthy
// (1, true, yes, y, any case).
func Decode(raw string) Table {
	rows := parseRows(normalizeNewlines(sanitizeUTF8(raw)))
	if len(rows) == 0 {
		return Table{}
	}

	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	cols := ResolveColumns(headers)

	table := Table{Headers: headers}
	for _, row := range rows[1:] {
		rec, ok := buildRecord(headers, cols, row)
		if !ok {
			continue
		}
		table.Records = append(table.Records, rec)
	}
	return table
}

// buildRecord turns one data row into a Record, reporting false when the
// row is filtered out.
func buildRecord(headers []string, cols Columns, row []string) (Record, bool) {
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			fields[h] = strings.TrimSpace(row[i])
		} else {
			fields[h] = ""
		}
	}

	id := cellAt(row, cols.ID)
	text := cellAt(row, cols.Text)
	if id == "" || text == "" {
		return Record{}, false
	}
	if cols.HasEnabled() && !isTruthy(cellAt(row, cols.Enabled)) {
		return Record{}, false
	}

	return Record{ID: id, Text: text, Fields: fields}, true
}

// cellAt returns the trimmed cell at index, or empty when the index is out
// of range or unresolved (-1).
func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// parseRows is the single-pass state machine. It runs in O(n) over the
// input, which has already been normalized to \n line endings.
func parseRows(text string) [][]string {
	var (
		rows   [][]string
		row    []string
		field  strings.Builder
		quoted bool
	)

	flushField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	flushRow := func() {
		flushField()
		// A lone empty field is the artifact of a blank line (or the
		// final newline); real rows always carry content or structure.
		if len(row) > 1 || row[0] != "" {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quoted {
			if ch == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					quoted = false
				}
			} else {
				field.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '"':
			quoted = true
		case ',':
			flushField()
		case '\n':
			flushRow()
		default:
			field.WriteByte(ch)
		}
	}

	// End of input: flush whatever accumulated, including the contents of
	// an unterminated quoted field.
	if field.Len() > 0 || len(row) > 0 {
		flushRow()
	}
	return rows
}

// normalizeNewlines maps \r\n and bare \r to \n so the parser only ever
// sees one line terminator.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character so downstream trimming and matching operate on
// valid UTF-8.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var buf bytes.Buffer
	buf.Grow(len(s))

	data := []byte(s)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.String()
}
