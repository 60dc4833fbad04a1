package pricing

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const priceSheet = "Prices"

var priceHeaders = []string{"Sides", "Color", "Paper size", "Paper finish", "Price per page"}

// WriteXLSX renders the flattened table as a single-sheet workbook.
func (t Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", priceSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range priceHeaders {
		cell, err := cellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(priceSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, e := range t.Entries() {
		row := []any{string(e.Sides), string(e.Color), string(e.PaperSize), string(e.PaperFinish), e.PricePerPage}
		cell, err := cellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(priceSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	currencyCell, err := cellName(len(priceHeaders)+2, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(priceSheet, currencyCell, "Currency: "+t.Currency); err != nil {
		return fmt.Errorf("write currency: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("cell name: %w", err)
	}
	return cell, nil
}
