package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"printshop-backend/internal/shared/metrics"
	"printshop-backend/internal/shared/telemetry"
	"printshop-backend/internal/shared/util"
)

const defaultTimeout = 30 * time.Second

// Handler inspects the bytes of one document variant.
type Handler interface {
	Inspect(ctx context.Context, format Format, data []byte) (Inspection, error)
}

// Config carries the immutable configuration injected at construction.
// Nil handlers are replaced with the built-in implementations.
type Config struct {
	Formats  *Formats
	Limits   Limits
	Timeout  time.Duration
	Renderer PageRenderer
	PDF      Handler
	Word     Handler
	Image    Handler
}

// Analyzer determines page counts and integrity of uploaded files.
type Analyzer struct {
	formats Formats
	limits  Limits
	timeout time.Duration
	pdf     Handler
	word    Handler
	image   Handler
	now     func() time.Time
}

// New constructs an Analyzer.
func New(cfg Config) *Analyzer {
	formats := DefaultFormats()
	if cfg.Formats != nil {
		formats = *cfg.Formats
	}
	limits := cfg.Limits.withDefaults()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = NoopRenderer{}
	}

	a := &Analyzer{
		formats: formats,
		limits:  limits,
		timeout: timeout,
		pdf:     cfg.PDF,
		word:    cfg.Word,
		image:   cfg.Image,
		now:     time.Now,
	}
	if a.pdf == nil {
		a.pdf = NewPDFHandler(limits, renderer)
	}
	if a.word == nil {
		a.word = NewWordHandler(limits)
	}
	if a.image == nil {
		a.image = ImageHandler{}
	}
	return a
}

// Formats returns the accepted format set.
func (a *Analyzer) Formats() Formats { return a.formats }

// Limits returns the thresholds in effect.
func (a *Analyzer) Limits() Limits { return a.limits }

// Analyze inspects file and returns its page information. Every failure is an
// *Error; a PageInfo is only returned alongside a nil error.
func (a *Analyzer) Analyze(ctx context.Context, file UploadedFile) (PageInfo, error) {
	start := a.now()
	analysisID := uuid.NewString()
	metrics.IncAnalysisStarted()

	info, err := a.analyze(ctx, analysisID, file)
	elapsed := a.now().Sub(start)
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Microseconds()) / 1000.0)

	if err != nil {
		var aerr *Error
		if !errors.As(err, &aerr) {
			aerr = newError(KindParseError, "analysis failed", newDiagnostics(), err)
		}
		aerr.Diagnostics.ProcessingTimeMs = elapsed.Milliseconds()
		metrics.IncAnalysisFailed(string(aerr.Kind))
		telemetry.Error("analysis.failed", map[string]any{
			"analysis_id":   analysisID,
			"file_name":     safeName(file.Name),
			"media_type":    file.MediaType,
			"byte_size":     file.Size,
			"kind":          string(aerr.Kind),
			"detail":        aerr.Detail,
			"processing_ms": elapsed.Milliseconds(),
		})
		return PageInfo{}, aerr
	}

	info.Diagnostics.ProcessingTimeMs = elapsed.Milliseconds()
	metrics.IncAnalysisCompleted(string(info.DetectedType))
	telemetry.Info("analysis.completed", map[string]any{
		"analysis_id":     analysisID,
		"file_name":       safeName(file.Name),
		"detected_type":   string(info.DetectedType),
		"page_count":      info.PageCount,
		"integrity_level": string(info.Diagnostics.IntegrityLevel),
		"processing_ms":   elapsed.Milliseconds(),
	})
	return info, nil
}

func (a *Analyzer) analyze(ctx context.Context, analysisID string, file UploadedFile) (PageInfo, error) {
	format, err := a.prevalidate(file)
	if err != nil {
		return PageInfo{}, err
	}

	data, err := a.read(file)
	if err != nil {
		return PageInfo{}, err
	}

	handler := a.handlerFor(format.Type)
	insp, err := a.inspectWithTimeout(ctx, handler, format, data)
	if err != nil {
		return PageInfo{}, err
	}
	if insp.PageCount < 1 {
		return PageInfo{}, newError(KindCannotDetermineLength, "could not determine the number of pages", insp.Diagnostics, nil)
	}

	if insp.PreviewErr != nil && !errors.Is(insp.PreviewErr, ErrPreviewDisabled) {
		insp.Diagnostics.warn(fmt.Sprintf("preview unavailable: %v", insp.PreviewErr))
		telemetry.Warn("analysis.preview_failed", map[string]any{
			"analysis_id": analysisID,
			"file_name":   safeName(file.Name),
			"err":         insp.PreviewErr.Error(),
		})
		insp.Preview = nil
	}

	return PageInfo{
		AnalysisID:        analysisID,
		FileName:          file.Name,
		PageCount:         insp.PageCount,
		DetectedType:      format.Type,
		Format:            format.Ext,
		ByteSize:          int64(len(data)),
		IsSizeWithinLimit: int64(len(data)) <= a.limits.MaxBytes,
		IsFormatSupported: true,
		Checksum:          util.HashBytes(data),
		WordCount:         insp.WordCount,
		PaperSize:         insp.PaperSize,
		Dimensions:        insp.Dimensions,
		Preview:           insp.Preview,
		Diagnostics:       insp.Diagnostics,
	}, nil
}

// prevalidate applies size and format checks without touching the bytes.
func (a *Analyzer) prevalidate(file UploadedFile) (Format, error) {
	if file.Size > a.limits.MaxBytes {
		return Format{}, a.limits.TooLargeError(file.Size)
	}
	if file.Size < a.limits.MinBytes {
		return Format{}, newError(KindFileTooSmallOrCorrupt,
			fmt.Sprintf("file is %d bytes; files under %d bytes are empty or corrupted", file.Size, a.limits.MinBytes),
			newDiagnostics(), nil)
	}
	format, ok := a.formats.Resolve(file.MediaType, file.Name)
	if !ok {
		return Format{}, newError(KindUnsupportedFormat,
			fmt.Sprintf("unsupported file type %s; supported types: %s", describeType(file), joinExtensions(a.formats.Extensions())),
			newDiagnostics(), nil)
	}
	if file.Reader == nil {
		return Format{}, newError(KindFileTooSmallOrCorrupt, "file has no content", newDiagnostics(), nil)
	}
	return format, nil
}

// read consumes the upload, re-checking the size against what was declared.
func (a *Analyzer) read(file UploadedFile) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file.Reader, a.limits.MaxBytes+1))
	if err != nil {
		return nil, newError(KindParseError, "could not read the uploaded file", newDiagnostics(), err)
	}
	size := int64(len(data))
	if size > a.limits.MaxBytes {
		return nil, a.limits.TooLargeError(0)
	}
	if size < a.limits.MinBytes {
		return nil, newError(KindFileTooSmallOrCorrupt,
			fmt.Sprintf("file is %d bytes; files under %d bytes are empty or corrupted", size, a.limits.MinBytes),
			newDiagnostics(), nil)
	}
	return data, nil
}

func (a *Analyzer) handlerFor(t DocumentType) Handler {
	switch t {
	case TypePDF:
		return a.pdf
	case TypeWord:
		return a.word
	default:
		return a.image
	}
}

type inspectResult struct {
	insp Inspection
	err  error
}

// inspectWithTimeout runs the handler off the caller's goroutine and gives up
// once the deadline passes or ctx is canceled. The handler sees the same
// context and is expected to stop early, but its late result is dropped.
func (a *Analyzer) inspectWithTimeout(ctx context.Context, h Handler, format Format, data []byte) (Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan inspectResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- inspectResult{err: newError(KindParseError, "document parser crashed", newDiagnostics(), fmt.Errorf("panic: %v", rec))}
			}
		}()
		insp, err := h.Inspect(ctx, format, data)
		done <- inspectResult{insp: insp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			var aerr *Error
			if errors.As(res.err, &aerr) {
				return Inspection{}, aerr
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Inspection{}, a.contextError(ctxErr)
			}
			return Inspection{}, newError(KindParseError, "could not parse the document", newDiagnostics(), res.err)
		}
		return res.insp, nil
	case <-ctx.Done():
		return Inspection{}, a.contextError(ctx.Err())
	}
}

func (a *Analyzer) contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout,
			fmt.Sprintf("analysis did not finish within %s", a.timeout),
			newDiagnostics(), err)
	}
	return newError(KindCanceled, "analysis was canceled", newDiagnostics(), err)
}

func describeType(file UploadedFile) string {
	mt := normalizeMediaType(file.MediaType)
	ext := normalizeExt(fileExt(file.Name))
	switch {
	case mt != "" && ext != "":
		return fmt.Sprintf("%q (.%s)", mt, ext)
	case mt != "":
		return fmt.Sprintf("%q", mt)
	case ext != "":
		return fmt.Sprintf(".%s", ext)
	default:
		return "(unknown)"
	}
}

func safeName(name string) string {
	clean, err := util.SanitizeFileName(name)
	if err != nil {
		return ""
	}
	return clean
}
