package printjobs

import (
	"printshop-backend/internal/analyzer"
	"printshop-backend/internal/pricing"
)

type quoteRequest struct {
	PageCount int             `json:"pageCount"`
	Options   pricing.Options `json:"options"`
}

// PriceListResponse is the rate card shown next to the option dropdowns.
type PriceListResponse struct {
	Currency string          `json:"currency"`
	Entries  []pricing.Entry `json:"entries"`
}

// FormatsResponse describes what the upload field accepts.
type FormatsResponse struct {
	Extensions   []string `json:"extensions"`
	MediaTypes   []string `json:"mediaTypes"`
	MaxBytes     int64    `json:"maxBytes"`
	MaxSizeLabel string   `json:"maxSizeLabel"`
	MinBytes     int64    `json:"minBytes"`
	WordsPerPage int      `json:"wordsPerPage"`
}

func toFormatsResponse(f analyzer.Formats, l analyzer.Limits) FormatsResponse {
	return FormatsResponse{
		Extensions:   f.Extensions(),
		MediaTypes:   f.MediaTypes(),
		MaxBytes:     l.MaxBytes,
		MaxSizeLabel: l.MaxBytesLabel(),
		MinBytes:     l.MinBytes,
		WordsPerPage: l.WordsPerPage,
	}
}

func toPriceList(t pricing.Table) PriceListResponse {
	return PriceListResponse{Currency: t.Currency, Entries: t.Entries()}
}

// errorDetails are attached to every analysis failure so the UI can offer
// a retry action and tips.
type errorDetails struct {
	Kind        analyzer.Kind         `json:"kind,omitempty"`
	Retryable   bool                  `json:"retryable"`
	Tips        []string              `json:"tips"`
	Diagnostics *analyzer.Diagnostics `json:"diagnostics,omitempty"`
}
