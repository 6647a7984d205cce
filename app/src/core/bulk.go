package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"obruk-backend/app/src/domain"
)

var positionalColumns = []string{"tds", "temperature", "moisture", "timestamp"}

// decodeBulkRows parses a bulk upload into raw payload rows. Two encodings
// are recognised: a JSON array of objects, and delimited text (comma,
// semicolon or tab) with an optional header row. Header order wins when
// present; otherwise columns are positional tds,temperature,moisture[,timestamp].
func decodeBulkRows(data []byte) ([]map[string]any, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrUnsupportedMedia)
	}

	if strings.HasPrefix(text, "[") {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(text), &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedMedia, err)
		}
		return rows, nil
	}
	if strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("%w: expected a JSON array or delimited text", domain.ErrUnsupportedMedia)
	}

	return decodeDelimited(text)
}

func decodeDelimited(text string) ([]map[string]any, error) {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedMedia, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows", domain.ErrUnsupportedMedia)
	}

	columns := positionalColumns
	if isHeaderRow(records[0]) {
		header, err := mapHeader(records[0])
		if err != nil {
			return nil, err
		}
		columns = header
		records = records[1:]
	}

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			if name == "" || i >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[i])
			if value != "" {
				row[name] = value
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func detectDelimiter(line string) rune {
	best := ','
	bestCount := strings.Count(line, ",")
	if n := strings.Count(line, ";"); n > bestCount {
		best, bestCount = ';', n
	}
	if n := strings.Count(line, "\t"); n > bestCount {
		best = '\t'
	}
	return best
}

func isHeaderRow(record []string) bool {
	for _, field := range record {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "tds", "temperature", "moisture", "timestamp":
			return true
		}
	}
	return false
}

// mapHeader resolves the column order from a header row. Unknown columns are
// carried as blanks and skipped; the three metric columns must all be present.
func mapHeader(record []string) ([]string, error) {
	columns := make([]string, len(record))
	known := map[string]bool{}
	for i, field := range record {
		name := strings.ToLower(strings.TrimSpace(field))
		switch name {
		case "tds", "temperature", "moisture", "timestamp":
			columns[i] = name
			known[name] = true
		}
	}

	for _, required := range []string{"tds", "temperature", "moisture"} {
		if !known[required] {
			return nil, fmt.Errorf("%w: header is missing column %q", domain.ErrUnsupportedMedia, required)
		}
	}

	return columns, nil
}
