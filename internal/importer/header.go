package importer

import "strings"

// Canonical column labels. Sheet authors are inconsistent with casing and
// spacing, so every label is canonicalized before lookup.
const (
	colDate         = "date"
	colOpeningKm    = "opening km"
	colOpeningHours = "opening hours"
	colKm           = "km"
	colLitres       = "litres"
	colDriver       = "driver"
	colSupplier     = "supplier"
	colCost         = "cost"
	colComments     = "comments"
	colNextService  = "next service km"
)

// corroboratingLabels back up a "date" cell when hunting for the header
// row. A title row that happens to mention a date will not match.
var corroboratingLabels = []string{
	colLitres,
	colDriver,
	colOpeningKm,
	colOpeningHours,
	colSupplier,
	colCost,
}

// HeaderIndex maps canonical column labels to column positions for one
// sheet. Absent columns have no entry; lookups tolerate missing keys.
type HeaderIndex map[string]int

// Col returns the position of the first matching label, or -1.
func (h HeaderIndex) Col(labels ...string) int {
	for _, label := range labels {
		if idx, ok := h[label]; ok {
			return idx
		}
	}
	return -1
}

// canonicalLabel lower-cases, trims and collapses internal whitespace.
func canonicalLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// locateHeader scans rows from the top until it finds one whose cells
// include "date" together with at least one corroborating label. Source
// sheets mix free-text titles, blank rows and notes above the real
// header, so a keyword anchor beats a fixed row index. Returns the header
// index and the first data row; ok is false when no header exists.
func locateHeader(grid [][]CellValue) (HeaderIndex, int, bool) {
	for rowIdx, row := range grid {
		labels := make(HeaderIndex, len(row))
		for colIdx, cell := range row {
			label := canonicalLabel(cell.String())
			if label == "" {
				continue
			}
			if _, taken := labels[label]; !taken {
				labels[label] = colIdx
			}
		}
		if _, ok := labels[colDate]; !ok {
			continue
		}
		for _, label := range corroboratingLabels {
			if _, ok := labels[label]; ok {
				return labels, rowIdx + 1, true
			}
		}
	}
	return nil, 0, false
}
