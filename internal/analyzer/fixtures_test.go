package analyzer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf16"
)

// buildPDF writes a minimal PDF with a correct cross-reference table.
func buildPDF(t *testing.T, pages int, extraTrailer string) []byte {
	t.Helper()
	var kids strings.Builder
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages),
	}
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595.28 841.89] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, extraTrailer, xref)
	return buf.Bytes()
}

// encryptedTrailer declares standard RC4 security with an unknown user
// password, so the empty password is rejected.
func encryptedTrailer() string {
	o := strings.Repeat("11", 32)
	u := strings.Repeat("22", 32)
	id := "0123456789abcdef0123456789abcdef"
	return fmt.Sprintf(" /Encrypt << /Filter /Standard /V 1 /R 2 /O <%s> /U <%s> /P -4 >> /ID [<%s> <%s>]", o, u, id, id)
}

// buildDOCX writes a package nguyenthenguyen/docx can open. A non-zero
// declaredPages adds docProps/app.xml.
func buildDOCX(t *testing.T, paragraphs []string, declaredPages int) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"_rels/.rels":         `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() +
			`</w:body></w:document>`,
	}
	if declaredPages > 0 {
		files["docProps/app.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Pages>%d</Pages></Properties>`, declaredPages)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i+1)
	}
	return strings.Join(parts, " ")
}

func patternImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func buildPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, patternImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func buildJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, patternImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// buildFIB builds a WordDocument stream prefix with the fields parseFIB reads.
func buildFIB(flags uint16, ccpText, fcClx, lcbClx uint32, size int) []byte {
	le := binary.LittleEndian
	const cbRgFcLcb = 93
	minSize := 154 + cbRgFcLcb*8
	if size < minSize {
		size = minSize
	}
	b := make([]byte, size)
	le.PutUint16(b[0:], fibIdent)
	le.PutUint16(b[0x0A:], flags)
	le.PutUint16(b[32:], 14)
	le.PutUint16(b[62:], 22)
	le.PutUint32(b[64+fibRgLwCcpText*4:], ccpText)
	le.PutUint16(b[152:], cbRgFcLcb)
	le.PutUint32(b[154+fibRgFcLcbClx*8:], fcClx)
	le.PutUint32(b[154+fibRgFcLcbClx*8+4:], lcbClx)
	return b
}

// buildCLX builds a CLX holding a single piece that covers cps [0, count).
func buildCLX(prc []byte, count uint32, fc uint32) []byte {
	le := binary.LittleEndian
	var b bytes.Buffer
	b.Write(prc)
	b.WriteByte(0x02)
	plc := make([]byte, 4*2+8)
	le.PutUint32(plc[0:], 0)
	le.PutUint32(plc[4:], count)
	le.PutUint32(plc[10:], fc)
	var lcb [4]byte
	le.PutUint32(lcb[:], uint32(len(plc)))
	b.Write(lcb[:])
	b.Write(plc)
	return b.Bytes()
}

// buildCFB lays out a version 3 compound file with the given root-level
// streams. Streams are padded to the 4096-byte mini stream cutoff so they
// all live in regular sectors and no mini FAT is needed.
func buildCFB(t *testing.T, streams map[string][]byte) []byte {
	t.Helper()
	const (
		sectorSize = 512
		cutoff     = 4096
		freeSect   = 0xFFFFFFFF
		endOfChain = 0xFFFFFFFE
		fatSect    = 0xFFFFFFFD
		noStream   = 0xFFFFFFFF
	)
	le := binary.LittleEndian

	names := make([]string, 0, len(streams))
	for name := range streams {
		names = append(names, name)
	}
	// Directory order: shorter names first, then case-insensitive.
	sort.Slice(names, func(i, j int) bool {
		a, b := names[i], names[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return strings.ToUpper(a) < strings.ToUpper(b)
	})
	if len(names)+1 > sectorSize/128 {
		t.Fatalf("buildCFB: %d streams do not fit one directory sector", len(names))
	}

	// Sector 0 holds the FAT, sector 1 the directory, streams follow.
	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSect
	}
	fat[0] = fatSect
	fat[1] = endOfChain

	var body bytes.Buffer
	starts := make(map[string]uint32, len(names))
	sizes := make(map[string]int, len(names))
	next := uint32(2)
	for _, name := range names {
		size := len(streams[name])
		if size < cutoff {
			size = cutoff
		}
		count := (size + sectorSize - 1) / sectorSize
		if int(next)+count > len(fat) {
			t.Fatalf("buildCFB: streams exceed one FAT sector")
		}
		starts[name], sizes[name] = next, size
		for i := 0; i < count; i++ {
			if i == count-1 {
				fat[next] = endOfChain
			} else {
				fat[next] = next + 1
			}
			next++
		}
		chunk := make([]byte, count*sectorSize)
		copy(chunk, streams[name])
		body.Write(chunk)
	}

	header := make([]byte, sectorSize)
	copy(header, oleSignature)
	le.PutUint16(header[0x18:], 0x003E)
	le.PutUint16(header[0x1A:], 0x0003)
	le.PutUint16(header[0x1C:], 0xFFFE)
	le.PutUint16(header[0x1E:], 9)
	le.PutUint16(header[0x20:], 6)
	le.PutUint32(header[0x2C:], 1)
	le.PutUint32(header[0x30:], 1)
	le.PutUint32(header[0x38:], cutoff)
	le.PutUint32(header[0x3C:], endOfChain)
	le.PutUint32(header[0x44:], endOfChain)
	le.PutUint32(header[0x4C:], 0)
	for i := 1; i < 109; i++ {
		le.PutUint32(header[0x4C+i*4:], freeSect)
	}

	dir := make([]byte, sectorSize)
	entry := func(i int, name string, typ byte, right, child, start uint32, size int) {
		e := dir[i*128 : (i+1)*128]
		units := utf16.Encode([]rune(name))
		for j, u := range units {
			le.PutUint16(e[j*2:], u)
		}
		if len(units) > 0 {
			le.PutUint16(e[0x40:], uint16((len(units)+1)*2))
		}
		e[0x42] = typ
		e[0x43] = 1
		le.PutUint32(e[0x44:], noStream)
		le.PutUint32(e[0x48:], right)
		le.PutUint32(e[0x4C:], child)
		le.PutUint32(e[0x74:], start)
		le.PutUint64(e[0x78:], uint64(size))
	}
	child := uint32(noStream)
	if len(names) > 0 {
		child = 1
	}
	entry(0, "Root Entry", 5, noStream, child, endOfChain, 0)
	for i, name := range names {
		right := uint32(noStream)
		if i+1 < len(names) {
			right = uint32(i + 2)
		}
		entry(i+1, name, 2, right, noStream, starts[name], sizes[name])
	}
	for i := len(names) + 1; i < sectorSize/128; i++ {
		entry(i, "", 0, noStream, noStream, 0, 0)
	}

	var out bytes.Buffer
	out.Write(header)
	for _, v := range fat {
		var b [4]byte
		le.PutUint32(b[:], v)
		out.Write(b[:])
	}
	out.Write(dir)
	out.Write(body.Bytes())
	return out.Bytes()
}

// buildDOC writes a Word 97-2003 file whose main text is one compressed
// piece. The piece table goes to tableName; 1Table also sets the FIB flag.
func buildDOC(t *testing.T, text string, flags uint16, tableName string) []byte {
	t.Helper()
	const textOffset = 1024
	clx := buildCLX(nil, uint32(len(text)), (textOffset*2)|0x40000000)
	if tableName == "1Table" {
		flags |= fibFlagWhichTable
	}
	wordDoc := buildFIB(flags, uint32(len(text)), 0, uint32(len(clx)), textOffset+len(text))
	copy(wordDoc[textOffset:], text)
	return buildCFB(t, map[string][]byte{
		"WordDocument": wordDoc,
		tableName:      clx,
	})
}

type countingHandler struct {
	calls atomic.Int32
	insp  Inspection
	err   error
}

func (h *countingHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	h.calls.Add(1)
	return h.insp, h.err
}

type blockingHandler struct{}

func (blockingHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	<-ctx.Done()
	return Inspection{}, ctx.Err()
}

type panicHandler struct{}

func (panicHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	panic("boom")
}

type fixedCounter struct {
	pages int
	err   error
}

func (c fixedCounter) CountPages([]byte) (int, error) { return c.pages, c.err }

type stubRenderer struct {
	img []byte
	err error
}

func (r stubRenderer) RenderFirstPage(ctx context.Context, pdf []byte, scale float64) ([]byte, error) {
	return r.img, r.err
}

// trackingReader reports whether anything tried to read the upload.
type trackingReader struct {
	read atomic.Bool
}

func (r *trackingReader) Read(p []byte) (int, error) {
	r.read.Store(true)
	return 0, fmt.Errorf("upload must not be read")
}

func padded(prefix string, n int) []byte {
	if len(prefix) >= n {
		return []byte(prefix)
	}
	return []byte(prefix + strings.Repeat(" ", n-len(prefix)))
}
