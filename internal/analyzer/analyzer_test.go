package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var aerr *Error
	require.True(t, errors.As(err, &aerr), "expected *Error, got %T: %v", err, err)
	require.Equal(t, kind, aerr.Kind, "detail: %s", aerr.Detail)
	assert.Equal(t, IntegrityError, aerr.Diagnostics.IntegrityLevel)
	assert.NotEmpty(t, aerr.Diagnostics.ErrorDetail)
	return aerr
}

func TestAnalyzeEmptyFileIsTooSmall(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(context.Background(), FileFromBytes("empty.pdf", "application/pdf", nil))
	aerr := requireKind(t, err, KindFileTooSmallOrCorrupt)
	assert.False(t, aerr.Retryable())
	assert.NotEmpty(t, aerr.Tips())
}

func TestAnalyzeRejectsOversizeWithoutParsing(t *testing.T) {
	counter := &countingHandler{}
	a := New(Config{PDF: counter, Word: counter, Image: counter})
	reader := &trackingReader{}

	_, err := a.Analyze(context.Background(), UploadedFile{
		Name:      "huge.pdf",
		MediaType: "application/pdf",
		Size:      50<<20 + 1,
		Reader:    reader,
	})
	aerr := requireKind(t, err, KindFileTooLarge)
	assert.Contains(t, aerr.Detail, "50 MB")
	assert.Equal(t, int32(0), counter.calls.Load())
	assert.False(t, reader.read.Load())
}

func TestAnalyzeAcceptsExactlyMaxBytes(t *testing.T) {
	counter := &countingHandler{insp: Inspection{PageCount: 1, Diagnostics: newDiagnostics()}}
	a := New(Config{PDF: counter})
	data := make([]byte, 50<<20)

	info, err := a.Analyze(context.Background(), FileFromBytes("max.pdf", "application/pdf", data))
	require.NoError(t, err)
	assert.True(t, info.IsSizeWithinLimit)
	assert.Equal(t, int32(1), counter.calls.Load())
}

func TestAnalyzeCatchesUnderstatedSize(t *testing.T) {
	counter := &countingHandler{}
	a := New(Config{PDF: counter, Limits: Limits{MaxBytes: 1000}})
	file := FileFromBytes("lies.pdf", "application/pdf", make([]byte, 2000))
	file.Size = 500

	_, err := a.Analyze(context.Background(), file)
	requireKind(t, err, KindFileTooLarge)
	assert.Equal(t, int32(0), counter.calls.Load())
}

func TestAnalyzeUnsupportedFormatNamesTypeAndSet(t *testing.T) {
	counter := &countingHandler{}
	a := New(Config{PDF: counter, Word: counter, Image: counter})

	_, err := a.Analyze(context.Background(), FileFromBytes("notes.txt", "text/plain", padded("hello", 200)))
	aerr := requireKind(t, err, KindUnsupportedFormat)
	assert.Contains(t, aerr.Detail, `"text/plain" (.txt)`)
	assert.Contains(t, aerr.Detail, "pdf, doc, docx, jpeg, jpg, png")
	assert.Equal(t, int32(0), counter.calls.Load())
}

func TestAnalyzeDispatchesByMediaTypeThenExtension(t *testing.T) {
	pdfH := &countingHandler{insp: Inspection{PageCount: 1, Diagnostics: newDiagnostics()}}
	wordH := &countingHandler{insp: Inspection{PageCount: 1, Diagnostics: newDiagnostics()}}
	imageH := &countingHandler{insp: Inspection{PageCount: 1, Diagnostics: newDiagnostics()}}
	a := New(Config{PDF: pdfH, Word: wordH, Image: imageH})
	data := padded("x", 200)

	info, err := a.Analyze(context.Background(), FileFromBytes("scan.pdf", "image/png", data))
	require.NoError(t, err)
	assert.Equal(t, TypeImage, info.DetectedType)
	assert.Equal(t, "png", info.Format)

	info, err = a.Analyze(context.Background(), FileFromBytes("letter.DOCX", "application/octet-stream", data))
	require.NoError(t, err)
	assert.Equal(t, TypeWord, info.DetectedType)
	assert.Equal(t, "docx", info.Format)

	_, err = a.Analyze(context.Background(), FileFromBytes("report.pdf", "", data))
	require.NoError(t, err)

	assert.Equal(t, int32(1), pdfH.calls.Load())
	assert.Equal(t, int32(1), wordH.calls.Load())
	assert.Equal(t, int32(1), imageH.calls.Load())
}

func TestAnalyzeZeroPagesFailsInsteadOfGuessing(t *testing.T) {
	a := New(Config{PDF: &countingHandler{insp: Inspection{PageCount: 0, Diagnostics: newDiagnostics()}}})
	_, err := a.Analyze(context.Background(), FileFromBytes("zero.pdf", "application/pdf", padded("%PDF-1.4", 200)))
	requireKind(t, err, KindCannotDetermineLength)
}

func TestAnalyzeTimeout(t *testing.T) {
	a := New(Config{PDF: blockingHandler{}, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := a.Analyze(context.Background(), FileFromBytes("slow.pdf", "application/pdf", padded("%PDF-1.4", 200)))
	aerr := requireKind(t, err, KindTimeout)
	assert.True(t, aerr.Retryable())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAnalyzeCanceledByCaller(t *testing.T) {
	a := New(Config{PDF: blockingHandler{}})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Analyze(ctx, FileFromBytes("slow.pdf", "application/pdf", padded("%PDF-1.4", 200)))
	aerr := requireKind(t, err, KindCanceled)
	assert.True(t, aerr.Retryable())
}

func TestAnalyzeRecoversHandlerPanic(t *testing.T) {
	a := New(Config{PDF: panicHandler{}})
	_, err := a.Analyze(context.Background(), FileFromBytes("bad.pdf", "application/pdf", padded("%PDF-1.4", 200)))
	aerr := requireKind(t, err, KindParseError)
	assert.Contains(t, aerr.Diagnostics.ErrorDetail, "boom")
}

func TestAnalyzeWrapsForeignHandlerErrors(t *testing.T) {
	a := New(Config{PDF: &countingHandler{err: errors.New("disk on fire")}})
	_, err := a.Analyze(context.Background(), FileFromBytes("bad.pdf", "application/pdf", padded("%PDF-1.4", 200)))
	aerr := requireKind(t, err, KindParseError)
	assert.Contains(t, aerr.Diagnostics.ErrorDetail, "disk on fire")
}

func TestAnalyzePDFPageCount(t *testing.T) {
	a := New(Config{})
	data := buildPDF(t, 10, "")

	info, err := a.Analyze(context.Background(), FileFromBytes("ten.pdf", "application/pdf", data))
	require.NoError(t, err)
	assert.Equal(t, 10, info.PageCount)
	assert.Equal(t, TypePDF, info.DetectedType)
	assert.Equal(t, "pdf", info.Format)
	assert.Equal(t, "1.4", info.Diagnostics.FormatVersion)
	assert.Equal(t, IntegrityGood, info.Diagnostics.IntegrityLevel)
	assert.False(t, info.Diagnostics.HasPassword)
	assert.True(t, info.IsFormatSupported)
	assert.True(t, info.IsSizeWithinLimit)
	assert.Equal(t, int64(len(data)), info.ByteSize)
	assert.NotEmpty(t, info.AnalysisID)
	assert.Len(t, info.Checksum, 64)
	assert.Nil(t, info.Preview)
}

func TestAnalyzePDFWithoutPagesCannotDetermineLength(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(context.Background(), FileFromBytes("empty.pdf", "application/pdf", buildPDF(t, 0, "")))
	requireKind(t, err, KindCannotDetermineLength)
}

func TestAnalyzePasswordProtectedPDF(t *testing.T) {
	a := New(Config{})
	data := buildPDF(t, 2, encryptedTrailer())

	_, err := a.Analyze(context.Background(), FileFromBytes("secret.pdf", "application/pdf", data))
	aerr := requireKind(t, err, KindPasswordProtected)
	assert.True(t, aerr.Diagnostics.HasPassword)
	assert.Contains(t, strings.Join(aerr.Tips(), " "), "password")
}

func TestAnalyzeInvalidPDFHeader(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(context.Background(), FileFromBytes("fake.pdf", "application/pdf", padded("GIF89a not a pdf", 200)))
	aerr := requireKind(t, err, KindInvalidPDFHeader)
	assert.True(t, aerr.Diagnostics.IsCorrupted)
}

func TestAnalyzeDamagedPDFStructure(t *testing.T) {
	a := New(Config{})
	data := padded("%PDF-1.4\nthis upload was cut off before the body was written", 300)

	_, err := a.Analyze(context.Background(), FileFromBytes("broken.pdf", "application/pdf", data))
	aerr := requireKind(t, err, KindInvalidStructure)
	assert.True(t, aerr.Diagnostics.IsCorrupted)
}

func TestAnalyzeWordEstimate(t *testing.T) {
	a := New(Config{})
	data := buildDOCX(t, []string{words(550)}, 0)
	file := func() UploadedFile {
		return FileFromBytes("essay.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
	}

	first, err := a.Analyze(context.Background(), file())
	require.NoError(t, err)
	assert.Equal(t, 2, first.PageCount)
	assert.Equal(t, 550, first.WordCount)
	assert.Equal(t, TypeWord, first.DetectedType)
	assert.Equal(t, "OOXML", first.Diagnostics.FormatVersion)
	require.NotNil(t, first.Preview)
	assert.Equal(t, "html", first.Preview.Kind)
	assert.True(t, first.Preview.Truncated)

	second, err := a.Analyze(context.Background(), file())
	require.NoError(t, err)
	assert.Equal(t, first.PageCount, second.PageCount)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.NotEqual(t, first.AnalysisID, second.AnalysisID)
}

func TestAnalyzeImage(t *testing.T) {
	a := New(Config{})

	info, err := a.Analyze(context.Background(), FileFromBytes("photo.png", "image/png", buildPNG(t, 40, 30)))
	require.NoError(t, err)
	assert.Equal(t, 1, info.PageCount)
	assert.Equal(t, TypeImage, info.DetectedType)
	require.NotNil(t, info.Dimensions)
	assert.Equal(t, 40, info.Dimensions.Width)
	assert.Equal(t, 30, info.Dimensions.Height)
	require.NotNil(t, info.Preview)
	assert.True(t, strings.HasPrefix(info.Preview.Content, "data:image/png;base64,"))

	info, err = a.Analyze(context.Background(), FileFromBytes("photo.jpg", "image/jpeg", buildJPEG(t, 24, 16)))
	require.NoError(t, err)
	assert.Equal(t, 1, info.PageCount)
	assert.Equal(t, "jpeg", info.Diagnostics.FormatVersion)
}

func TestAnalyzeCorruptImage(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(context.Background(), FileFromBytes("photo.png", "image/png", padded("\x89PNG\r\n\x1a\n garbage", 200)))
	aerr := requireKind(t, err, KindCorruptImage)
	assert.True(t, aerr.Diagnostics.IsCorrupted)
}

func TestAnalyzePreviewFailureIsWarning(t *testing.T) {
	h := &PDFHandler{
		Limits:   DefaultLimits(),
		Renderer: stubRenderer{err: errors.New("renderer exploded")},
		Primary:  fixedCounter{pages: 3},
	}
	a := New(Config{PDF: h})

	info, err := a.Analyze(context.Background(), FileFromBytes("ok.pdf", "application/pdf", padded("%PDF-1.7\n", 200)))
	require.NoError(t, err)
	assert.Equal(t, 3, info.PageCount)
	assert.Nil(t, info.Preview)
	assert.Equal(t, IntegrityWarning, info.Diagnostics.IntegrityLevel)
	assert.Contains(t, info.Diagnostics.ErrorDetail, "renderer exploded")
}

func TestAnalyzeDisabledPreviewStaysGood(t *testing.T) {
	h := &PDFHandler{Limits: DefaultLimits(), Renderer: NoopRenderer{}, Primary: fixedCounter{pages: 3}}
	a := New(Config{PDF: h})

	info, err := a.Analyze(context.Background(), FileFromBytes("ok.pdf", "application/pdf", padded("%PDF-1.7\n", 200)))
	require.NoError(t, err)
	assert.Equal(t, IntegrityGood, info.Diagnostics.IntegrityLevel)
	assert.Empty(t, info.Diagnostics.ErrorDetail)
}
