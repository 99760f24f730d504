package sheets

import (
	"regexp"
	"strings"
	"time"
)

// idPattern matches runs of URL-safe identifier characters long enough to be a
// document id. \w in RE2 is [0-9A-Za-z_].
var idPattern = regexp.MustCompile(`[-\w]{25,}`)

var lineBreak = regexp.MustCompile(`\r?\n`)

// ExtractID returns the longest run of at least 25 identifier characters in
// ref. Ties go to the leftmost run. Surrounding path segments and query
// strings are ignored.
func ExtractID(ref string) (string, bool) {
	var best string
	for _, m := range idPattern.FindAllString(ref, -1) {
		if len(m) > len(best) {
			best = m
		}
	}
	return best, best != ""
}

// ParseLine splits one CSV line on commas outside double quotes.
//
// Quote characters toggle the quoted state and are never copied into a field,
// so `""` inside a quoted field does not produce a literal quote. After a field
// ends it is trimmed and then loses one leading and one trailing `"` if any
// remain; with the toggle above that strip only matters for malformed input,
// and it is kept so output stays identical to earlier imports.
func ParseLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(fields, cleanField(current.String()))
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// Parse turns exported CSV text into a TabularContext. The first non-blank
// line is the header row.
func Parse(raw string, fetchedAt time.Time) (*TabularContext, error) {
	var lines []string
	for _, line := range lineBreak.Split(raw, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, emptyDocument()
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, ParseLine(line))
	}

	return &TabularContext{
		Headers:   ParseLine(lines[0]),
		Rows:      rows,
		RawText:   raw,
		FetchedAt: fetchedAt,
	}, nil
}
