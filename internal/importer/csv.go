package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Bracket-wrapped fields may contain commas that a plain CSV split would
// break on. Before parsing, commas inside [...] spans are swapped for a
// placeholder rune and restored per field afterward.
const commaPlaceholder = '\x1f'

func protectBracketCommas(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inBracket := false
	for _, r := range content {
		switch {
		case r == '[':
			inBracket = true
			b.WriteRune(r)
		case r == ']':
			inBracket = false
			b.WriteRune(r)
		case r == ',' && inBracket:
			b.WriteRune(commaPlaceholder)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func restoreCommas(field string) string {
	return strings.ReplaceAll(field, string(commaPlaceholder), ",")
}

// decodeCSV reads a whole CSV stream into a header row and data rows, with
// bracket-protected commas restored. Rows may have uneven field counts;
// parseRow treats missing trailing fields as empty.
func decodeCSV(r io.Reader) (header []string, rows [][]string, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	content := strings.TrimPrefix(string(raw), "\ufeff")
	content = protectBracketCommas(content)

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("file has no header row")
	}

	for _, record := range records {
		for i, field := range record {
			record[i] = restoreCommas(field)
		}
	}

	return records[0], records[1:], nil
}
