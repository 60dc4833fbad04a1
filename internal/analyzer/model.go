package analyzer

import (
	"bytes"
	"io"
	"strings"
)

// DocumentType is the closed set of variants the analyzer dispatches on.
type DocumentType string

const (
	TypePDF   DocumentType = "pdf"
	TypeWord  DocumentType = "word"
	TypeImage DocumentType = "image"
)

// IntegrityLevel classifies how far a result can be trusted.
type IntegrityLevel string

const (
	IntegrityGood    IntegrityLevel = "good"
	IntegrityWarning IntegrityLevel = "warning"
	IntegrityError   IntegrityLevel = "error"
)

// UploadedFile is a file handed over by the caller for one analysis call.
// Reader is consumed at most once and only after pre-validation passed.
type UploadedFile struct {
	Name      string
	MediaType string
	Size      int64
	Reader    io.Reader
}

// FileFromBytes wraps an in-memory payload.
func FileFromBytes(name, mediaType string, data []byte) UploadedFile {
	return UploadedFile{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Reader:    bytes.NewReader(data),
	}
}

// Diagnostics is the health report attached to every analysis.
type Diagnostics struct {
	IsCorrupted      bool           `json:"isCorrupted"`
	HasPassword      bool           `json:"hasPassword"`
	FormatVersion    string         `json:"detectedFormatVersion,omitempty"`
	IntegrityLevel   IntegrityLevel `json:"integrityLevel"`
	ErrorDetail      string         `json:"errorDetail,omitempty"`
	DeclaredPages    int            `json:"declaredPages,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

func newDiagnostics() Diagnostics {
	return Diagnostics{IntegrityLevel: IntegrityGood}
}

// warn downgrades a good result to warning and appends detail.
func (d *Diagnostics) warn(detail string) {
	if d.IntegrityLevel != IntegrityError {
		d.IntegrityLevel = IntegrityWarning
	}
	if strings.TrimSpace(detail) == "" {
		return
	}
	if d.ErrorDetail == "" {
		d.ErrorDetail = detail
		return
	}
	d.ErrorDetail += "; " + detail
}

// Preview is a best-effort rendering for the UI.
type Preview struct {
	Kind      string `json:"kind"` // "image" or "html"
	MediaType string `json:"mediaType"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Dimensions are pixel sizes of an image upload.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PageInfo is the result of a successful analysis.
type PageInfo struct {
	AnalysisID        string       `json:"analysisId"`
	FileName          string       `json:"fileName"`
	PageCount         int          `json:"pageCount"`
	DetectedType      DocumentType `json:"detectedType"`
	Format            string       `json:"format"`
	ByteSize          int64        `json:"byteSize"`
	IsSizeWithinLimit bool         `json:"isSizeWithinLimit"`
	IsFormatSupported bool         `json:"isFormatSupported"`
	Checksum          string       `json:"checksum"`
	WordCount         int          `json:"wordCount,omitempty"`
	PaperSize         string       `json:"paperSize,omitempty"`
	Dimensions        *Dimensions  `json:"dimensions,omitempty"`
	Preview           *Preview     `json:"preview,omitempty"`
	Diagnostics       Diagnostics  `json:"diagnostics"`
}

// Inspection is what a type handler learned about a file. PreviewErr is kept
// apart from the handler's error so a failed preview never fails the call.
type Inspection struct {
	PageCount   int
	WordCount   int
	PaperSize   string
	Dimensions  *Dimensions
	Preview     *Preview
	PreviewErr  error
	Diagnostics Diagnostics
}
