package importer

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one workbook tab, conventionally named after a vehicle's
// license plate, with its cells verbatim.
type Sheet struct {
	Name string
	Grid [][]CellValue
}

// Workbook holds every sheet of an uploaded file in workbook order.
type Workbook struct {
	Sheets []Sheet
}

// ReadWorkbook parses xlsx bytes into per-sheet cell grids. Raw cell
// values are requested so native date cells arrive as serial numbers or
// ISO strings rather than locale-formatted text; the date normalizer owns
// their interpretation. An unreadable file is a fatal input error.
func ReadWorkbook(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		grid := make([][]CellValue, len(rows))
		for i, row := range rows {
			cells := make([]CellValue, len(row))
			for j, raw := range row {
				cells[j] = classifyCell(raw)
			}
			grid[i] = cells
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Grid: grid})
	}
	return wb, nil
}
