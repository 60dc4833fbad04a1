package analyzer

import (
	"bytes"
	"errors"
	"math"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var errPDFPassword = pdf.ErrInvalidPassword

// LedongthucReader counts pages with github.com/ledongthuc/pdf.
type LedongthucReader struct{}

// CountPages reads the page tree count from the trailer's catalog.
func (LedongthucReader) CountPages(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// PdfcpuReader reads PDFs with pdfcpu in relaxed validation mode.
type PdfcpuReader struct{}

var (
	pdfcpuOnce sync.Once
	pdfcpuBase *model.Configuration
)

// pdfcpuConfig returns a private copy per call; pdfcpu writes into the
// configuration while processing.
func pdfcpuConfig() *model.Configuration {
	pdfcpuOnce.Do(func() {
		model.ConfigPath = "disable"
		pdfcpuBase = model.NewDefaultConfiguration()
		pdfcpuBase.ValidationMode = model.ValidationRelaxed
	})
	conf := *pdfcpuBase
	return &conf
}

// CountPages returns the page count pdfcpu derives from the page tree.
func (PdfcpuReader) CountPages(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), pdfcpuConfig())
}

// PaperSize classifies the first page's media box as A4, A3 or other.
func (PdfcpuReader) PaperSize(data []byte) (string, error) {
	dims, err := api.PageDims(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return "", err
	}
	if len(dims) == 0 {
		return "", errors.New("no pages")
	}
	return classifyPaper(dims[0].Width, dims[0].Height), nil
}

// Sizes in PostScript points, portrait.
var paperSizes = []struct {
	name          string
	width, height float64
}{
	{"A4", 595.28, 841.89},
	{"A3", 841.89, 1190.55},
}

func classifyPaper(width, height float64) string {
	if width > height {
		width, height = height, width
	}
	for _, p := range paperSizes {
		if within(width, p.width) && within(height, p.height) {
			return p.name
		}
	}
	return "other"
}

func within(got, want float64) bool {
	return math.Abs(got-want) <= want*0.03
}
