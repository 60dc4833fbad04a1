package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is returned when print options fail validation.
var ErrInvalidOptions = errors.New("invalid print options")

type Sides string

const (
	SidesSingle Sides = "single"
	SidesDouble Sides = "double"
)

type Color string

const (
	ColorBlackAndWhite Color = "blackAndWhite"
	ColorColor         Color = "color"
)

type PaperSize string

const (
	PaperA4 PaperSize = "A4"
	PaperA3 PaperSize = "A3"
)

type PaperFinish string

const (
	FinishPlain  PaperFinish = "plain"
	FinishGlossy PaperFinish = "glossy"
	FinishCoated PaperFinish = "coated"
)

var (
	allSides    = []Sides{SidesSingle, SidesDouble}
	allColors   = []Color{ColorBlackAndWhite, ColorColor}
	allSizes    = []PaperSize{PaperA4, PaperA3}
	allFinishes = []PaperFinish{FinishPlain, FinishGlossy, FinishCoated}
)

// Options are the print settings chosen in the pricing panel.
type Options struct {
	Sides       Sides       `json:"sides" yaml:"sides"`
	Color       Color       `json:"color" yaml:"color"`
	PaperSize   PaperSize   `json:"paperSize" yaml:"paperSize"`
	PaperFinish PaperFinish `json:"paperFinish" yaml:"paperFinish"`
	Copies      int         `json:"copies" yaml:"copies"`
}

// DefaultOptions is single-sided black-and-white A4 plain, one copy.
func DefaultOptions() Options {
	return Options{
		Sides:       SidesSingle,
		Color:       ColorBlackAndWhite,
		PaperSize:   PaperA4,
		PaperFinish: FinishPlain,
		Copies:      1,
	}
}

// Validate checks enum membership and copies >= 1.
func (o Options) Validate() error {
	if !contains(allSides, o.Sides) {
		return fmt.Errorf("%w: sides %q", ErrInvalidOptions, o.Sides)
	}
	if !contains(allColors, o.Color) {
		return fmt.Errorf("%w: color %q", ErrInvalidOptions, o.Color)
	}
	if !contains(allSizes, o.PaperSize) {
		return fmt.Errorf("%w: paper size %q", ErrInvalidOptions, o.PaperSize)
	}
	if !contains(allFinishes, o.PaperFinish) {
		return fmt.Errorf("%w: paper finish %q", ErrInvalidOptions, o.PaperFinish)
	}
	if o.Copies < 1 {
		return fmt.Errorf("%w: copies must be at least 1, got %d", ErrInvalidOptions, o.Copies)
	}
	return nil
}

// ParseSides accepts the canonical value case-insensitively.
func ParseSides(raw string) (Sides, error) { return parseEnum(allSides, raw, "sides") }

// ParseColor accepts the canonical value case-insensitively.
func ParseColor(raw string) (Color, error) { return parseEnum(allColors, raw, "color") }

// ParsePaperSize accepts the canonical value case-insensitively.
func ParsePaperSize(raw string) (PaperSize, error) { return parseEnum(allSizes, raw, "paper size") }

// ParsePaperFinish accepts the canonical value case-insensitively.
func ParsePaperFinish(raw string) (PaperFinish, error) {
	return parseEnum(allFinishes, raw, "paper finish")
}

func parseEnum[T ~string](values []T, raw, field string) (T, error) {
	clean := strings.TrimSpace(raw)
	for _, v := range values {
		if strings.EqualFold(string(v), clean) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrInvalidOptions, field, raw)
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
