package analyzer

import (
	"errors"
	"fmt"
)

// Kind names a failure class the UI can act on.
type Kind string

const (
	KindFileTooLarge          Kind = "FileTooLarge"
	KindFileTooSmallOrCorrupt Kind = "FileTooSmallOrCorrupt"
	KindUnsupportedFormat     Kind = "UnsupportedFormat"
	KindInvalidPDFHeader      Kind = "InvalidPdfHeader"
	KindPasswordProtected     Kind = "PasswordProtected"
	KindInvalidStructure      Kind = "InvalidStructure"
	KindCannotDetermineLength Kind = "CannotDetermineLength"
	KindTimeout               Kind = "Timeout"
	KindParseError            Kind = "ParseError"
	KindCannotReadWord        Kind = "CannotReadWord"
	KindCorruptImage          Kind = "CorruptImage"
	KindCanceled              Kind = "Canceled"
)

// Error is returned for every failed analysis. No PageInfo accompanies it.
type Error struct {
	Kind        Kind
	Detail      string
	Diagnostics Diagnostics
	Err         error
}

func newError(kind Kind, detail string, diag Diagnostics, cause error) *Error {
	diag.IntegrityLevel = IntegrityError
	diag.ErrorDetail = detail
	if cause != nil && kind == KindParseError {
		diag.ErrorDetail = fmt.Sprintf("%s: %v", detail, cause)
	}
	return &Error{Kind: kind, Detail: detail, Diagnostics: diag, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether re-sending the same file may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindCanceled:
		return true
	default:
		return false
	}
}

// Tips returns short actionable hints shown next to the retry action.
func (e *Error) Tips() []string {
	switch e.Kind {
	case KindFileTooLarge:
		return []string{
			"Compress the document or split it into smaller files",
			"Export images at a lower resolution before uploading",
		}
	case KindFileTooSmallOrCorrupt:
		return []string{
			"Make sure the file finished downloading before uploading it",
			"Open the file on your device to confirm it is not empty",
		}
	case KindUnsupportedFormat:
		return []string{
			"Save the document as PDF, Word (.doc/.docx), JPG or PNG",
		}
	case KindInvalidPDFHeader, KindInvalidStructure:
		return []string{
			"Try re-exporting the document as a fresh PDF",
			"Make sure the file was not renamed from another format",
		}
	case KindPasswordProtected:
		return []string{
			"Ensure the file is not password protected",
			"Remove the password and export the PDF again",
		}
	case KindCannotDetermineLength, KindParseError:
		return []string{
			"Try re-exporting the document as a fresh PDF",
			"Print the document to PDF from its original application",
		}
	case KindTimeout:
		return []string{
			"Try again in a moment",
			"Upload a smaller file or split the document",
		}
	case KindCannotReadWord:
		return []string{
			"Open the document in Word and save it again as .docx",
			"Export the document as PDF instead",
			"Ensure the document is not password protected",
		}
	case KindCorruptImage:
		return []string{
			"Re-save the image as JPG or PNG",
			"Take a new photo or scan of the page",
		}
	case KindCanceled:
		return []string{"Select the file again to restart the analysis"}
	default:
		return nil
	}
}

// KindOf returns the analyzer kind carried by err, or "" for foreign errors.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return ""
}
