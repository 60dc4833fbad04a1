package analyzer

import (
	"fmt"
	"time"
)

// Limits are the fixed thresholds applied to every analysis.
type Limits struct {
	MaxBytes       int64
	MinBytes       int64
	LargePDFPages  int
	LargeWordPages int
	WordsPerPage   int
	PreviewChars   int
	PreviewScale   float64
	PreviewTimeout time.Duration
}

// DefaultLimits returns the storefront limits: 50 MiB max, 100 bytes min.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:       50 << 20,
		MinBytes:       100,
		LargePDFPages:  1000,
		LargeWordPages: 500,
		WordsPerPage:   275,
		PreviewChars:   2000,
		PreviewScale:   0.3,
		PreviewTimeout: 10 * time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MinBytes <= 0 {
		l.MinBytes = d.MinBytes
	}
	if l.LargePDFPages <= 0 {
		l.LargePDFPages = d.LargePDFPages
	}
	if l.LargeWordPages <= 0 {
		l.LargeWordPages = d.LargeWordPages
	}
	if l.WordsPerPage <= 0 {
		l.WordsPerPage = d.WordsPerPage
	}
	if l.PreviewChars <= 0 {
		l.PreviewChars = d.PreviewChars
	}
	if l.PreviewScale <= 0 || l.PreviewScale > 1 {
		l.PreviewScale = d.PreviewScale
	}
	if l.PreviewTimeout <= 0 {
		l.PreviewTimeout = d.PreviewTimeout
	}
	return l
}

// MaxBytesLabel renders the size limit for user-facing messages.
func (l Limits) MaxBytesLabel() string {
	if l.MaxBytes%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", l.MaxBytes>>20)
	}
	return fmt.Sprintf("%d bytes", l.MaxBytes)
}

// TooLargeError builds the FileTooLarge failure for callers that reject an
// upload before it reaches Analyze (e.g. a request body limit).
func (l Limits) TooLargeError(size int64) *Error {
	diag := newDiagnostics()
	detail := fmt.Sprintf("file exceeds the maximum size of %s", l.withDefaults().MaxBytesLabel())
	if size > 0 {
		detail = fmt.Sprintf("file is %d bytes and exceeds the maximum size of %s", size, l.withDefaults().MaxBytesLabel())
	}
	return newError(KindFileTooLarge, detail, diag, nil)
}
