package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPriceCombination is returned when the table has no rate for
// the requested options. Missing rates are never priced as zero.
var ErrUnknownPriceCombination = errors.New("unknown price combination")

//go:embed default_prices.yaml
var defaultTableYAML []byte

// Table maps sides → color → paper size → finish → price per page.
type Table struct {
	Currency string                                                 `json:"currency" yaml:"currency"`
	Prices   map[Sides]map[Color]map[PaperSize]map[PaperFinish]float64 `json:"prices" yaml:"prices"`
}

// Entry is one flattened row of the table.
type Entry struct {
	Sides        Sides       `json:"sides"`
	Color        Color       `json:"color"`
	PaperSize    PaperSize   `json:"paperSize"`
	PaperFinish  PaperFinish `json:"paperFinish"`
	PricePerPage float64     `json:"pricePerPage"`
}

// DefaultTable returns the shop's built-in rate card.
func DefaultTable() Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded price table: %v", err))
	}
	return t
}

// LoadTable reads a YAML price table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read price table %s: %w", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return Table{}, fmt.Errorf("price table %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes and validates a YAML price table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("decode price table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Validate rejects empty tables, unknown keys and negative or non-finite prices.
func (t Table) Validate() error {
	entries := t.Entries()
	if len(entries) == 0 {
		return errors.New("price table has no entries")
	}
	for _, e := range entries {
		opts := Options{Sides: e.Sides, Color: e.Color, PaperSize: e.PaperSize, PaperFinish: e.PaperFinish, Copies: 1}
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("price table entry: %w", err)
		}
		if e.PricePerPage < 0 || math.IsNaN(e.PricePerPage) || math.IsInf(e.PricePerPage, 0) {
			return fmt.Errorf("price table entry %s/%s/%s/%s: invalid price %v",
				e.Sides, e.Color, e.PaperSize, e.PaperFinish, e.PricePerPage)
		}
	}
	return nil
}

// Lookup returns the per-page rate for the options.
func (t Table) Lookup(o Options) (float64, error) {
	price, ok := t.Prices[o.Sides][o.Color][o.PaperSize][o.PaperFinish]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s/%s/%s", ErrUnknownPriceCombination, o.Sides, o.Color, o.PaperSize, o.PaperFinish)
	}
	return price, nil
}

// Entries flattens the table in a stable order.
func (t Table) Entries() []Entry {
	var out []Entry
	for sides, byColor := range t.Prices {
		for color, bySize := range byColor {
			for size, byFinish := range bySize {
				for finish, price := range byFinish {
					out = append(out, Entry{
						Sides:        sides,
						Color:        color,
						PaperSize:    size,
						PaperFinish:  finish,
						PricePerPage: price,
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Sides != b.Sides {
			return a.Sides > b.Sides // single before double
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		if a.PaperSize != b.PaperSize {
			return a.PaperSize < b.PaperSize
		}
		return a.PaperFinish > b.PaperFinish // plain, glossy, coated
	})
	return out
}
