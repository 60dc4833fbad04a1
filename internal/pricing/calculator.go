package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPageCount is returned for page counts below one.
var ErrInvalidPageCount = errors.New("page count must be at least 1")

// Quote is the priced result of a print job.
type Quote struct {
	PageCount      int     `json:"pageCount"`
	Options        Options `json:"options"`
	PricePerPage   float64 `json:"pricePerPage"`
	Currency       string  `json:"currency"`
	SheetsRequired int     `json:"sheetsRequired"`
	TotalSheets    int     `json:"totalSheets"`
	SheetsSaved    int     `json:"sheetsSaved"`
	TotalCost      float64 `json:"totalCost"`
}

// SheetsRequired is the physical sheets for one copy.
func SheetsRequired(pageCount int, sides Sides) int {
	if sides == SidesDouble {
		return (pageCount + 1) / 2
	}
	return pageCount
}

// PriceJob prices a job. Cost is per logical page and does not depend on
// the sheet count, so double-sided jobs cost the same as single-sided ones
// at equal rates.
func PriceJob(pageCount int, opts Options, table Table) (Quote, error) {
	if pageCount < 1 {
		return Quote{}, fmt.Errorf("%w: got %d", ErrInvalidPageCount, pageCount)
	}
	if err := opts.Validate(); err != nil {
		return Quote{}, err
	}
	rate, err := table.Lookup(opts)
	if err != nil {
		return Quote{}, err
	}

	sheets := SheetsRequired(pageCount, opts.Sides)
	totalSheets := sheets * opts.Copies
	return Quote{
		PageCount:      pageCount,
		Options:        opts,
		PricePerPage:   rate,
		Currency:       table.Currency,
		SheetsRequired: sheets,
		TotalSheets:    totalSheets,
		SheetsSaved:    pageCount*opts.Copies - totalSheets,
		TotalCost:      roundCents(float64(pageCount) * rate * float64(opts.Copies)),
	}, nil
}

// Calculator binds a price table for repeated quoting.
type Calculator struct {
	table Table
}

// NewCalculator validates the table once up front.
func NewCalculator(table Table) (*Calculator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{table: table}, nil
}

func (c *Calculator) Quote(pageCount int, opts Options) (Quote, error) {
	return PriceJob(pageCount, opts, c.table)
}

func (c *Calculator) Table() Table { return c.table }

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
