package printjobs

import (
	"context"
	"errors"

	"printshop-backend/internal/analyzer"
	"printshop-backend/internal/pricing"
	"printshop-backend/internal/shared/metrics"
	"printshop-backend/internal/shared/telemetry"
	"printshop-backend/internal/shared/util"
)

// Analyzer is the document analysis dependency.
type Analyzer interface {
	Analyze(ctx context.Context, file analyzer.UploadedFile) (analyzer.PageInfo, error)
	Formats() analyzer.Formats
	Limits() analyzer.Limits
}

// Quoter prices a page count.
type Quoter interface {
	Quote(pageCount int, opts pricing.Options) (pricing.Quote, error)
	Table() pricing.Table
}

// Service runs analyses and quotes for the print counter.
type Service struct {
	Analyzer  Analyzer
	Pricing   Quoter
	Supersede *Supersessor
}

// NewService constructs a Service.
func NewService(a Analyzer, q Quoter) *Service {
	return &Service{Analyzer: a, Pricing: q, Supersede: NewSupersessor()}
}

// AnalyzeResult is the analysis plus, when print options were supplied, its quote.
type AnalyzeResult struct {
	Analysis analyzer.PageInfo `json:"analysis"`
	Quote    *pricing.Quote    `json:"quote,omitempty"`
}

// Analyze inspects file on behalf of sessionID. A newer call for the same
// session makes this one return ErrSuperseded, even if its analysis
// finished. Calls without a session run independently.
func (s *Service) Analyze(ctx context.Context, sessionID string, file analyzer.UploadedFile, opts *pricing.Options) (AnalyzeResult, error) {
	runCtx := ctx
	if sessionID != "" {
		var done func()
		runCtx, done = s.Supersede.Begin(ctx, sessionID)
		defer done()
	}

	info, err := s.Analyzer.Analyze(runCtx, file)
	if Superseded(runCtx) {
		metrics.IncAnalysisSuperseded()
		telemetry.Info("analysis.superseded", map[string]any{
			"client": util.HashClientKey(sessionID),
		})
		return AnalyzeResult{}, ErrSuperseded
	}
	if err != nil {
		return AnalyzeResult{}, err
	}

	result := AnalyzeResult{Analysis: info}
	if opts != nil {
		quote, err := s.Quote(info.PageCount, *opts)
		if err != nil {
			return result, err
		}
		result.Quote = &quote
	}
	return result, nil
}

// Quote prices pageCount under opts.
func (s *Service) Quote(pageCount int, opts pricing.Options) (pricing.Quote, error) {
	quote, err := s.Pricing.Quote(pageCount, opts)
	metrics.IncQuote(err == nil)
	if err != nil && errors.Is(err, pricing.ErrUnknownPriceCombination) {
		telemetry.Warn("quote.unknown_combination", map[string]any{
			"sides":        string(opts.Sides),
			"color":        string(opts.Color),
			"paper_size":   string(opts.PaperSize),
			"paper_finish": string(opts.PaperFinish),
		})
	}
	return quote, err
}
