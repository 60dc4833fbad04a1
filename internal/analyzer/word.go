package analyzer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
)

var (
	zipSignature = []byte("PK\x03\x04")
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// WordHandler estimates page counts for .doc and .docx uploads.
//
// The count is an estimate: ceil(words / WordsPerPage) with a floor of one
// page. Layout (fonts, margins, images, tables) is not taken into account.
type WordHandler struct {
	Limits Limits
}

// NewWordHandler constructs a WordHandler.
func NewWordHandler(limits Limits) *WordHandler {
	return &WordHandler{Limits: limits.withDefaults()}
}

// Inspect extracts the document text and derives the page estimate.
func (h *WordHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	diag := newDiagnostics()

	var (
		paragraphs []string
		err        error
	)
	switch wordContainer(format, data) {
	case "docx":
		diag.FormatVersion = "OOXML"
		if err = checkDocxExpansion(data, h.Limits.MaxBytes*docxExpansionFactor); err != nil {
			break
		}
		paragraphs, err = docxParagraphs(data)
		if pages, ok := docxDeclaredPages(data); ok {
			diag.DeclaredPages = pages
		}
	default:
		diag.FormatVersion = "Word 97-2003"
		paragraphs, err = legacyDocParagraphs(ctx, data)
		if errors.Is(err, errDocEncrypted) {
			diag.HasPassword = true
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Inspection{}, ctxErr
		}
		diag.IsCorrupted = !diag.HasPassword
		return Inspection{}, newError(KindCannotReadWord, "could not read the Word document", diag, err)
	}
	if err := ctx.Err(); err != nil {
		return Inspection{}, err
	}

	plain := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(plain) == "" {
		diag.IsCorrupted = true
		return Inspection{}, newError(KindCannotReadWord, "the Word document has no readable text", diag, nil)
	}

	words := CountWords(plain)
	pages := EstimateWordPages(words, h.Limits.WordsPerPage)
	if pages > h.Limits.LargeWordPages {
		diag.warn(fmt.Sprintf("large document (about %d pages), processing may be slow", pages))
	}

	content, truncated := paragraphsHTML(paragraphs, h.Limits.PreviewChars)
	return Inspection{
		PageCount: pages,
		WordCount: words,
		Preview: &Preview{
			Kind:      "html",
			MediaType: "text/html; charset=utf-8",
			Content:   content,
			Truncated: truncated,
		},
		Diagnostics: diag,
	}, nil
}

// CountWords counts whitespace-delimited tokens.
func CountWords(plain string) int {
	return len(strings.Fields(plain))
}

// EstimateWordPages returns max(1, ceil(words/perPage)).
func EstimateWordPages(words, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultLimits().WordsPerPage
	}
	pages := (words + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

func wordContainer(format Format, data []byte) string {
	switch {
	case bytes.HasPrefix(data, zipSignature):
		return "docx"
	case bytes.HasPrefix(data, oleSignature):
		return "doc"
	case format.Ext == "docx":
		return "docx"
	default:
		return "doc"
	}
}

// docxExpansionFactor bounds how far the XML parts of a package may
// inflate past the upload limit.
const docxExpansionFactor = 4

// checkDocxExpansion rejects packages whose XML parts declare more than
// limit uncompressed bytes, before any part is inflated.
func checkDocxExpansion(data []byte, limit int64) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open docx: %w", err)
	}
	ceiling := uint64(limit)
	var total uint64
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if !strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, ".rels") {
			continue
		}
		if f.UncompressedSize64 > ceiling || total+f.UncompressedSize64 > ceiling {
			return fmt.Errorf("docx XML expands past %d bytes", ceiling)
		}
		total += f.UncompressedSize64
	}
	return nil
}

func docxParagraphs(data []byte) ([]string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()
	return splitDocxXML(doc.Editable().GetContent())
}

// splitDocxXML collects w:t runs of document.xml, one entry per paragraph.
func splitDocxXML(raw string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var (
		out    []string
		buf    strings.Builder
		inText bool
	)
	flush := func() {
		if text := strings.TrimSpace(buf.String()); text != "" {
			out = append(out, text)
		}
		buf.Reset()
	}
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		}
	}
	flush()
	return out, nil
}

type docxAppProps struct {
	Pages string `xml:"Pages"`
}

// docxDeclaredPages reads the page count Word cached in docProps/app.xml.
func docxDeclaredPages(data []byte) (int, bool) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "docProps/app.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, false
		}
		defer rc.Close()
		var props docxAppProps
		if err := xml.NewDecoder(rc).Decode(&props); err != nil {
			return 0, false
		}
		pages, err := strconv.Atoi(strings.TrimSpace(props.Pages))
		if err != nil || pages <= 0 {
			return 0, false
		}
		return pages, true
	}
	return 0, false
}

// paragraphsHTML renders escaped paragraphs up to limit characters of text.
func paragraphsHTML(paragraphs []string, limit int) (string, bool) {
	var b strings.Builder
	used := 0
	truncated := false
	for _, p := range paragraphs {
		remaining := limit - used
		if remaining <= 0 {
			truncated = true
			break
		}
		if n := utf8.RuneCountInString(p); n > remaining {
			p = truncateRunes(p, remaining) + "…"
			truncated = true
			used = limit
		} else {
			used += n
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>")
		if truncated {
			break
		}
	}
	if truncated {
		b.WriteString(`<p class="preview-note">Preview truncated; the full document will be printed.</p>`)
	}
	return b.String(), truncated
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
