package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrPreviewDisabled is returned by renderers that are switched off. It is
// not reported as a warning.
var ErrPreviewDisabled = errors.New("preview disabled")

// PageRenderer rasterizes the first page of a PDF into a JPEG.
type PageRenderer interface {
	RenderFirstPage(ctx context.Context, pdf []byte, scale float64) ([]byte, error)
}

// NoopRenderer never renders.
type NoopRenderer struct{}

// RenderFirstPage always returns ErrPreviewDisabled.
func (NoopRenderer) RenderFirstPage(ctx context.Context, pdf []byte, scale float64) ([]byte, error) {
	return nil, ErrPreviewDisabled
}

// PdftoppmRenderer shells out to poppler's pdftoppm.
type PdftoppmRenderer struct {
	Binary  string
	TempDir string
	Quality int
}

// NewPdftoppmRenderer locates the binary on PATH when binary is empty.
func NewPdftoppmRenderer(binary string) (*PdftoppmRenderer, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "pdftoppm"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not available: %w", err)
	}
	return &PdftoppmRenderer{Binary: path, Quality: 60}, nil
}

// RenderFirstPage renders page 1 at scale × 72 dpi.
func (r *PdftoppmRenderer) RenderFirstPage(ctx context.Context, pdf []byte, scale float64) ([]byte, error) {
	dir, err := os.MkdirTemp(r.TempDir, "preview-*")
	if err != nil {
		return nil, fmt.Errorf("preview workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("preview input: %w", err)
	}

	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = 60
	}
	outRoot := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.Binary,
		"-f", "1", "-l", "1",
		"-singlefile",
		"-jpeg", "-jpegopt", "quality="+strconv.Itoa(quality),
		"-r", strconv.Itoa(previewDPI(scale)),
		input, outRoot,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("render preview: %w", ctxErr)
		}
		return nil, fmt.Errorf("render preview: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(outRoot + ".jpg")
}

func previewDPI(scale float64) int {
	dpi := int(math.Round(72 * scale))
	if dpi < 10 {
		dpi = 10
	}
	return dpi
}
