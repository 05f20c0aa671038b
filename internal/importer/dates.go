package importer

import (
	"strconv"
	"strings"
	"time"
)

// excelEpochOffsetDays is the day offset between the spreadsheet serial
// epoch (1899-12-30) and the Unix epoch.
const excelEpochOffsetDays = 25569

// fallbackDateLayouts catch locale strings that slip past the structured
// rules, e.g. "Mar 15, 2024".
var fallbackDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
}

// parseCellDate resolves a cell of unknown shape into a UTC calendar date.
// Precedence: native date, spreadsheet serial, DD.MM.YY[YY], slash/dash
// triples, then generic layouts. ok is false for anything unparseable;
// callers treat that as "skip row", never as an error.
func parseCellDate(cell CellValue) (time.Time, bool) {
	switch cell.Kind {
	case CellDate:
		return truncateToDay(cell.Date), true
	case CellNumber:
		if cell.Number <= 0 {
			return time.Time{}, false
		}
		unix := int64((cell.Number - excelEpochOffsetDays) * 86400)
		return truncateToDay(time.Unix(unix, 0).UTC()), true
	case CellText:
		return parseDateString(cell.Text)
	default:
		return time.Time{}, false
	}
}

func parseDateString(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// Dotted dates are always day-first: "15.03.24" or "15.03.2024".
	if strings.Contains(s, ".") {
		if parts := strings.Split(s, "."); len(parts) == 3 {
			day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
			month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
			year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
			if errD != nil || errM != nil || errY != nil {
				return time.Time{}, false
			}
			if year < 100 {
				year += 2000
			}
			return makeDate(year, month, day)
		}
	}

	if strings.ContainsAny(s, "/-") {
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
		if len(parts) == 3 {
			first, errF := strconv.Atoi(strings.TrimSpace(parts[0]))
			second, errS := strconv.Atoi(strings.TrimSpace(parts[1]))
			third, errT := strconv.Atoi(strings.TrimSpace(parts[2]))
			if errF == nil && errS == nil && errT == nil {
				if len(strings.TrimSpace(parts[0])) == 4 {
					return makeDate(first, second, third)
				}
				return makeDate(third, second, first)
			}
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDay(t), true
		}
	}
	return time.Time{}, false
}

// makeDate validates the components instead of letting time.Date wrap
// out-of-range values into a different month.
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// truncateToDay strips time-of-day so same-day comparisons and grouping
// are timezone independent.
func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
