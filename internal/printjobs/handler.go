package printjobs

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"printshop-backend/internal/analyzer"
	"printshop-backend/internal/pricing"
	"printshop-backend/internal/shared/server/middleware"
	"printshop-backend/internal/shared/server/respond"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope and option fields.
const multipartOverhead = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches print routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	pg := rg.Group("/print")
	pg.POST("/analyze", h.analyze)
	pg.POST("/quote", h.quote)
	pg.GET("/prices", h.prices)
	pg.GET("/prices.xlsx", h.pricesXLSX)
	pg.GET("/formats", h.formats)
}

func (h *Handler) analyze(c *gin.Context) {
	limits := h.Svc.Analyzer.Limits()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limits.MaxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			writeError(c, limits.TooLargeError(0))
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	opts, err := optionsFromForm(c)
	if err != nil {
		writeError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	upload := analyzer.UploadedFile{
		Name:      fileHeader.Filename,
		MediaType: fileHeader.Header.Get("Content-Type"),
		Size:      fileHeader.Size,
		Reader:    file,
	}
	result, err := h.Svc.Analyze(c.Request.Context(), middleware.SessionIDFromContext(c), upload, opts)
	if result.Analysis.AnalysisID != "" {
		c.Set("analysisId", result.Analysis.AnalysisID)
		c.Header("X-Analysis-Id", result.Analysis.AnalysisID)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	respond.Private(c, result)
}

func (h *Handler) quote(c *gin.Context) {
	req := quoteRequest{Options: pricing.DefaultOptions()}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	quote, err := h.Svc.Quote(req.PageCount, req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, quote)
}

func (h *Handler) prices(c *gin.Context) {
	respond.OK(c, toPriceList(h.Svc.Pricing.Table()))
}

func (h *Handler) pricesXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Svc.Pricing.Table().WriteXLSX(&buf); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build price list", nil)
		return
	}
	respond.Attachment(c, xlsxContentType, "print-prices.xlsx", buf.Bytes())
}

func (h *Handler) formats(c *gin.Context) {
	respond.OK(c, toFormatsResponse(h.Svc.Analyzer.Formats(), h.Svc.Analyzer.Limits()))
}

// optionsFromForm returns nil when the request carries no print options.
// Missing fields fall back to the panel defaults.
func optionsFromForm(c *gin.Context) (*pricing.Options, error) {
	fields := []string{"sides", "color", "paperSize", "paperFinish", "copies"}
	present := false
	for _, f := range fields {
		if _, ok := c.GetPostForm(f); ok {
			present = true
			break
		}
	}
	if !present {
		return nil, nil
	}

	opts := pricing.DefaultOptions()
	var err error
	if v, ok := c.GetPostForm("sides"); ok {
		if opts.Sides, err = pricing.ParseSides(v); err != nil {
			return nil, err
		}
	}
	if v, ok := c.GetPostForm("color"); ok {
		if opts.Color, err = pricing.ParseColor(v); err != nil {
			return nil, err
		}
	}
	if v, ok := c.GetPostForm("paperSize"); ok {
		if opts.PaperSize, err = pricing.ParsePaperSize(v); err != nil {
			return nil, err
		}
	}
	if v, ok := c.GetPostForm("paperFinish"); ok {
		if opts.PaperFinish, err = pricing.ParsePaperFinish(v); err != nil {
			return nil, err
		}
	}
	if v, ok := c.GetPostForm("copies"); ok {
		n, convErr := strconv.Atoi(strings.TrimSpace(v))
		if convErr != nil {
			return nil, fmt.Errorf("%w: copies %q", pricing.ErrInvalidOptions, v)
		}
		opts.Copies = n
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func writeError(c *gin.Context, err error) {
	var aerr *analyzer.Error
	switch {
	case errors.As(err, &aerr):
		c.Set("errorKind", string(aerr.Kind))
		diag := aerr.Diagnostics
		respond.Error(c, statusForKind(aerr.Kind), string(aerr.Kind), aerr.Detail, errorDetails{
			Kind:        aerr.Kind,
			Retryable:   aerr.Retryable(),
			Tips:        aerr.Tips(),
			Diagnostics: &diag,
		})
	case errors.Is(err, ErrSuperseded):
		respond.Error(c, http.StatusConflict, "superseded", "a newer analysis replaced this one", errorDetails{
			Tips: []string{},
		})
	case errors.Is(err, pricing.ErrUnknownPriceCombination):
		respond.Error(c, http.StatusUnprocessableEntity, "unknown_price_combination", err.Error(), errorDetails{
			Tips: []string{"Choose a different paper size or finish"},
		})
	case errors.Is(err, pricing.ErrInvalidOptions), errors.Is(err, pricing.ErrInvalidPageCount):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}

func statusForKind(kind analyzer.Kind) int {
	switch kind {
	case analyzer.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case analyzer.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case analyzer.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}
