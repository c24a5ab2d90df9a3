package parser

import (
	"strconv"
	"strings"
	"time"
)

const (
	// dayMonthYear accepts one- or two-digit day and month, e.g. "1.6.2024" or "01.06.2024".
	dayMonthYear = "2.1.2006"
	// isoLayout is the naive ISO-8601 datetime written to records.
	isoLayout = "2006-01-02T15:04:05"
)

// ParseDates splits a validity string such as "01.06. - 15.06.2024" into ISO
// start and end datetimes. The start borrows the end's year. Text without a
// dash (e.g. "laufend") comes back trimmed as the start with an empty end.
// Any other shape, or a part that does not parse, yields two empty strings.
func ParseDates(raw string) (validFrom, validTo string) {
	parts := strings.Split(raw, "-")
	switch len(parts) {
	case 1:
		return strings.TrimSpace(raw), ""
	case 2:
	default:
		return "", ""
	}

	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	end, err := time.Parse(dayMonthYear, right)
	if err != nil {
		return "", ""
	}
	start, err := time.Parse(dayMonthYear, left+strconv.Itoa(end.Year()))
	if err != nil {
		return "", ""
	}
	return start.Format(isoLayout), end.Format(isoLayout)
}
