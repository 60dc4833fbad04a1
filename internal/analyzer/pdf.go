package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"printshop-backend/internal/shared/telemetry"
)

var (
	pdfSignature    = []byte("%PDF-")
	pdfVersionRegex = regexp.MustCompile(`^%PDF-(\d\.\d)`)
)

// PageCounter reads a PDF and reports its page count.
type PageCounter interface {
	CountPages(data []byte) (int, error)
}

// PaperSizer reports the paper size of the first page of a PDF.
type PaperSizer interface {
	PaperSize(data []byte) (string, error)
}

// PDFHandler analyzes PDF uploads.
type PDFHandler struct {
	Limits   Limits
	Renderer PageRenderer
	Primary  PageCounter
	Fallback PageCounter
	Sizer    PaperSizer
}

// NewPDFHandler wires the ledongthuc reader as primary parser and pdfcpu
// as the relaxed structural fallback and page geometry source.
func NewPDFHandler(limits Limits, renderer PageRenderer) *PDFHandler {
	relaxed := PdfcpuReader{}
	return &PDFHandler{
		Limits:   limits.withDefaults(),
		Renderer: renderer,
		Primary:  LedongthucReader{},
		Fallback: relaxed,
		Sizer:    relaxed,
	}
}

// Inspect validates the header, counts pages and renders a preview.
func (h *PDFHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	diag := newDiagnostics()

	if !bytes.HasPrefix(data, pdfSignature) {
		diag.IsCorrupted = true
		return Inspection{}, newError(KindInvalidPDFHeader, "file does not start with the %PDF- signature", diag, nil)
	}
	diag.FormatVersion = pdfVersion(data)

	if err := ctx.Err(); err != nil {
		return Inspection{}, err
	}

	pages, err := h.countPages(data)
	if err != nil {
		return Inspection{}, h.classify(err, diag)
	}
	if pages <= 0 {
		return Inspection{}, newError(KindCannotDetermineLength,
			fmt.Sprintf("document reports %d pages", pages), diag, nil)
	}
	if pages > h.Limits.LargePDFPages {
		diag.warn(fmt.Sprintf("large file (%d pages), processing may be slow", pages))
	}

	insp := Inspection{PageCount: pages, Diagnostics: diag}
	if h.Sizer != nil {
		if size, err := safePaperSize(h.Sizer, data); err == nil {
			insp.PaperSize = size
		}
	}
	insp.Preview, insp.PreviewErr = h.preview(ctx, data)
	return insp, nil
}

func (h *PDFHandler) countPages(data []byte) (int, error) {
	pages, err := safeCount(h.Primary, data)
	if err == nil || h.Fallback == nil || primaryKind(err) != KindInvalidStructure {
		return pages, err
	}
	recovered, ferr := safeCount(h.Fallback, data)
	if ferr != nil {
		return 0, err
	}
	telemetry.Info("analysis.pdf_recovered", map[string]any{
		"primary_err": err.Error(),
		"page_count":  recovered,
	})
	return recovered, nil
}

func (h *PDFHandler) classify(err error, diag Diagnostics) *Error {
	switch primaryKind(err) {
	case KindPasswordProtected:
		diag.HasPassword = true
		return newError(KindPasswordProtected, "the PDF is password protected", diag, err)
	case KindInvalidStructure:
		diag.IsCorrupted = true
		return newError(KindInvalidStructure, "the PDF structure is damaged and cannot be recovered", diag, err)
	default:
		return newError(KindParseError, "could not parse the PDF", diag, err)
	}
}

// preview renders page one under a budget carved out of the remaining
// analysis time so a slow renderer cannot turn into a Timeout.
func (h *PDFHandler) preview(ctx context.Context, data []byte) (*Preview, error) {
	if h.Renderer == nil {
		return nil, ErrPreviewDisabled
	}
	budget := h.Limits.PreviewTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; half < budget {
			budget = half
		}
	}
	if budget <= 0 {
		return nil, errors.New("no time left for preview")
	}
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	img, err := h.Renderer.RenderFirstPage(pctx, data, h.Limits.PreviewScale)
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, errors.New("renderer returned an empty image")
	}
	return &Preview{
		Kind:      "image",
		MediaType: mimeJPEG,
		Content:   "data:" + mimeJPEG + ";base64," + base64.StdEncoding.EncodeToString(img),
	}, nil
}

func pdfVersion(data []byte) string {
	head := data
	if len(head) > 32 {
		head = head[:32]
	}
	if m := pdfVersionRegex.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}

func safeCount(c PageCounter, data []byte) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = 0, fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	return c.CountPages(data)
}

// safePaperSize treats a geometry panic as an unknown size.
func safePaperSize(s PaperSizer, data []byte) (size string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			size, err = "", fmt.Errorf("pdf geometry panic: %v", rec)
		}
	}()
	return s.PaperSize(data)
}

// primaryKind maps reader failures onto the PDF failure kinds.
func primaryKind(err error) Kind {
	if errors.Is(err, errPDFPassword) {
		return KindPasswordProtected
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypt"):
		return KindPasswordProtected
	case strings.Contains(msg, "malformed"),
		strings.Contains(msg, "not a pdf"),
		strings.Contains(msg, "xref"),
		strings.Contains(msg, "%%eof"),
		strings.Contains(msg, "trailer"):
		return KindInvalidStructure
	default:
		return KindParseError
	}
}
