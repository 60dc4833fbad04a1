package analyzer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeJPEG = "image/jpeg"
	mimeJPG  = "image/jpg"
	mimePNG  = "image/png"
)

// Format is a resolved upload format: the canonical extension and the
// variant that handles it.
type Format struct {
	Ext  string
	Type DocumentType
}

var knownExtensions = map[string]DocumentType{
	"pdf":  TypePDF,
	"doc":  TypeWord,
	"docx": TypeWord,
	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"png":  TypeImage,
}

// Formats is the immutable set of accepted extensions and media types.
type Formats struct {
	extensions map[string]DocumentType
	mediaTypes map[string]string // media type -> canonical extension
}

// DefaultFormats accepts PDF, legacy and OOXML Word, JPEG and PNG.
func DefaultFormats() Formats {
	f, _ := NewFormats(
		[]string{"pdf", "doc", "docx", "jpg", "jpeg", "png"},
		map[string]string{
			mimePDF:  "pdf",
			mimeDOC:  "doc",
			mimeDOCX: "docx",
			mimeJPEG: "jpeg",
			mimeJPG:  "jpg",
			mimePNG:  "png",
		},
	)
	return f
}

// NewFormats builds a restricted format set. Only extensions the analyzer has
// a handler for are allowed.
func NewFormats(extensions []string, mediaTypes map[string]string) (Formats, error) {
	f := Formats{
		extensions: make(map[string]DocumentType, len(extensions)),
		mediaTypes: make(map[string]string, len(mediaTypes)),
	}
	for _, raw := range extensions {
		ext := normalizeExt(raw)
		t, ok := knownExtensions[ext]
		if !ok {
			return Formats{}, fmt.Errorf("no handler for extension %q", raw)
		}
		f.extensions[ext] = t
	}
	for mt, raw := range mediaTypes {
		ext := normalizeExt(raw)
		if _, ok := f.extensions[ext]; !ok {
			return Formats{}, fmt.Errorf("media type %s maps to unsupported extension %q", mt, raw)
		}
		f.mediaTypes[normalizeMediaType(mt)] = ext
	}
	return f, nil
}

// Resolve picks the format from the declared media type, falling back to
// the file-name extension. It never looks at the bytes.
func (f Formats) Resolve(mediaType, fileName string) (Format, bool) {
	if ext, ok := f.mediaTypes[normalizeMediaType(mediaType)]; ok {
		return Format{Ext: ext, Type: f.extensions[ext]}, true
	}
	ext := normalizeExt(filepath.Ext(fileName))
	if t, ok := f.extensions[ext]; ok {
		return Format{Ext: ext, Type: t}, true
	}
	return Format{}, false
}

// Extensions lists accepted extensions in sorted order.
func (f Formats) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for ext := range f.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// MediaTypes lists accepted media types in sorted order.
func (f Formats) MediaTypes() []string {
	out := make([]string, 0, len(f.mediaTypes))
	for mt := range f.mediaTypes {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

func normalizeMediaType(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

func normalizeExt(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
}

func fileExt(name string) string {
	return filepath.Ext(strings.TrimSpace(name))
}

func joinExtensions(exts []string) string {
	return strings.Join(exts, ", ")
}
