package importer

import (
	"math"
	"strconv"
	"strings"
)

// numberCleaner strips the decoration sheet authors type into numeric
// cells: currency symbols, quote characters, thousands separators.
var numberCleaner = strings.NewReplacer(
	"r", "", "R", "",
	"$", "", "€", "", "£", "",
	"'", "", "’", "", "\"", "",
	",", "", " ", "", " ", "",
)

// cellNumber parses a cell of unknown shape as a float. Returns NaN on
// failure, never an error; callers must NaN-check before use so "absent
// or garbled" stays distinct from "zero".
func cellNumber(cell CellValue) float64 {
	switch cell.Kind {
	case CellNumber:
		return cell.Number
	case CellText:
		cleaned := numberCleaner.Replace(strings.TrimSpace(cell.Text))
		if cleaned == "" {
			return math.NaN()
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

func hasValue(n float64) bool {
	return !math.IsNaN(n)
}
