// Package csvio decodes the uploaded mail and CRM CSV exports into domain
// records. Exports come from many CRMs and mail providers, so headers are
// matched against alias lists and non-UTF-8 files fall back to Latin-1.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Table is a decoded CSV with lowercased, trimmed headers.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadTable decodes a CSV stream. Files that are not valid UTF-8 are decoded
// as Latin-1, matching what the exports in the wild actually contain.
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode latin-1 csv: %w", err)
		}
	}
	// Strip a UTF-8 BOM if present.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return &Table{Headers: headers, Rows: rows}, nil
}

// lookup returns the first non-empty value among the canonical column name
// and its aliases.
func lookup(row map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v, ok := row[a]; ok && v != "" {
			return v
		}
	}
	return ""
}
