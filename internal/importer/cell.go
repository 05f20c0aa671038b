package importer

import (
	"strconv"
	"strings"
	"time"
)

// CellKind discriminates the value held by a CellValue.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// CellValue is one spreadsheet cell. Source workbooks mix free text,
// numbers, native dates and blanks in the same column, so every consumer
// switches on Kind instead of guessing from a raw string.
type CellValue struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
}

func emptyCell() CellValue {
	return CellValue{Kind: CellEmpty}
}

func textCell(s string) CellValue {
	return CellValue{Kind: CellText, Text: s}
}

func numberCell(n float64) CellValue {
	return CellValue{Kind: CellNumber, Number: n}
}

func dateCell(t time.Time) CellValue {
	return CellValue{Kind: CellDate, Date: t}
}

// isoCellLayouts are the shapes excelize emits for date-typed cells when
// raw values are requested.
var isoCellLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// classifyCell turns a raw cell string into a tagged CellValue. Raw reads
// surface native dates either as serial numbers or ISO timestamps; serials
// stay numbers here and are resolved by the date normalizer.
func classifyCell(raw string) CellValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return emptyCell()
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return numberCell(n)
	}
	for _, layout := range isoCellLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return dateCell(t)
		}
	}
	return textCell(trimmed)
}

// String renders the cell for label matching and free-text scans.
func (c CellValue) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.UTC().Format("2006-01-02")
	default:
		return ""
	}
}
