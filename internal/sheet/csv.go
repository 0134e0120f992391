package sheet

import (
	"strings"

	"auction_display/internal/record"
)

// ParseCSV turns a CSV payload into records. The first line names the
// columns; every following line maps positionally onto them. Rows short of
// the header count pad trailing fields with "", extra fields are dropped.
//
// Commas inside quoted cells are not handled. The source sheets have never
// used them and the original display split on commas the same way.
func ParseCSV(payload string) []record.Record {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(payload), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []record.Record
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, ",")
		row := make(record.Record, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = strings.TrimSpace(values[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// LooksLikeMarkup reports whether a payload is an HTML interstitial rather
// than delimited text. Sheets serves a consent/login page instead of a 403
// for some documents, so status alone is not enough.
func LooksLikeMarkup(payload string) bool {
	trimmed := strings.TrimLeft(payload, " \t\r\n\uFEFF")
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}
