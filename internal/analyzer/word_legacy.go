package analyzer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

var errDocEncrypted = errors.New("document is encrypted")

const (
	fibIdent          = 0xA5EC
	fibFlagEncrypted  = 0x0100
	fibFlagWhichTable = 0x0200
	fibRgLwCcpText    = 3
	fibRgFcLcbClx     = 33
)

// legacyDocParagraphs reads the main document text of a Word 97-2003 file.
func legacyDocParagraphs(ctx context.Context, data []byte) ([]string, error) {
	streams, err := readCFBStreams(data, "WordDocument", "0Table", "1Table")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wordDoc, ok := streams["WordDocument"]
	if !ok {
		return nil, errors.New("WordDocument stream not found")
	}
	fib, err := parseFIB(wordDoc)
	if err != nil {
		return nil, err
	}
	if fib.encrypted {
		return nil, errDocEncrypted
	}
	tableName := "0Table"
	if fib.table1 {
		tableName = "1Table"
	}
	table, ok := streams[tableName]
	if !ok {
		return nil, fmt.Errorf("%s stream not found", tableName)
	}
	text, err := pieceText(wordDoc, table, fib)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return splitDocText(text), nil
}

func readCFBStreams(data []byte, names ...string) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compound file: %w", err)
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	out := make(map[string][]byte, len(names))
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if len(entry.Path) != 0 || !wanted[entry.Name] {
			continue
		}
		if _, seen := out[entry.Name]; seen {
			continue
		}
		if entry.Size < 0 || entry.Size > int64(len(data)) {
			return nil, fmt.Errorf("stream %s has invalid size %d", entry.Name, entry.Size)
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("read stream %s: %w", entry.Name, err)
		}
		out[entry.Name] = buf
	}
	return out, nil
}

type fibInfo struct {
	encrypted bool
	table1    bool
	ccpText   uint32
	fcClx     uint32
	lcbClx    uint32
}

// parseFIB reads the File Information Block at the start of WordDocument.
func parseFIB(b []byte) (fibInfo, error) {
	le := binary.LittleEndian
	if len(b) < 34 || le.Uint16(b[0:2]) != fibIdent {
		return fibInfo{}, errors.New("missing Word file information block")
	}
	flags := le.Uint16(b[0x0A:0x0C])
	fib := fibInfo{
		encrypted: flags&fibFlagEncrypted != 0,
		table1:    flags&fibFlagWhichTable != 0,
	}

	pos := 32
	csw := int(le.Uint16(b[pos:]))
	pos += 2 + csw*2
	if len(b) < pos+2 {
		return fibInfo{}, errors.New("truncated file information block")
	}
	cslw := int(le.Uint16(b[pos:]))
	pos += 2
	if cslw <= fibRgLwCcpText || len(b) < pos+cslw*4+2 {
		return fibInfo{}, errors.New("truncated file information block")
	}
	fib.ccpText = le.Uint32(b[pos+fibRgLwCcpText*4:])
	pos += cslw * 4
	cbRgFcLcb := int(le.Uint16(b[pos:]))
	pos += 2
	if cbRgFcLcb <= fibRgFcLcbClx || len(b) < pos+cbRgFcLcb*8 {
		return fibInfo{}, errors.New("truncated file information block")
	}
	fib.fcClx = le.Uint32(b[pos+fibRgFcLcbClx*8:])
	fib.lcbClx = le.Uint32(b[pos+fibRgFcLcbClx*8+4:])
	return fib, nil
}

// pieceText resolves the piece table in the CLX and concatenates the main
// document text (the first ccpText characters).
func pieceText(wordDoc, table []byte, fib fibInfo) (string, error) {
	le := binary.LittleEndian
	start := int(fib.fcClx)
	end := start + int(fib.lcbClx)
	if fib.lcbClx == 0 || start < 0 || end > len(table) {
		return "", errors.New("piece table out of range")
	}
	clx := table[start:end]

	// Prc blocks: 0x01, cbGrpprl (int16, never negative), grpprl.
	pos := 0
	for pos < len(clx) && clx[pos] == 0x01 {
		if pos+3 > len(clx) {
			return "", errors.New("truncated piece table")
		}
		cb := int(int16(le.Uint16(clx[pos+1:])))
		if cb < 0 || pos+3+cb > len(clx) {
			return "", fmt.Errorf("invalid property block size %d", cb)
		}
		pos += 3 + cb
	}
	if pos+5 > len(clx) || clx[pos] != 0x02 {
		return "", errors.New("piece table descriptor missing")
	}
	lcb := int(le.Uint32(clx[pos+1:]))
	plc := clx[pos+5:]
	if lcb < 4 || lcb > len(plc) || (lcb-4)%12 != 0 {
		return "", errors.New("invalid piece table length")
	}
	n := (lcb - 4) / 12
	cps := make([]uint32, n+1)
	for i := range cps {
		cps[i] = le.Uint32(plc[i*4:])
	}
	pcds := plc[(n+1)*4:]

	var b strings.Builder
	for i := 0; i < n; i++ {
		cpStart, cpEnd := cps[i], cps[i+1]
		if cpStart >= fib.ccpText {
			break
		}
		if cpEnd > fib.ccpText {
			cpEnd = fib.ccpText
		}
		if cpEnd < cpStart {
			return "", errors.New("piece table is not ordered")
		}
		count := int(cpEnd - cpStart)
		fc := le.Uint32(pcds[i*8+2:])
		compressed := fc&0x40000000 != 0
		fc &= 0x3FFFFFFF

		if compressed {
			off := int(fc / 2)
			if off+count > len(wordDoc) {
				return "", errors.New("piece points outside WordDocument")
			}
			decoded, err := charmap.Windows1252.NewDecoder().Bytes(wordDoc[off : off+count])
			if err != nil {
				return "", fmt.Errorf("decode piece: %w", err)
			}
			b.Write(decoded)
			continue
		}
		off := int(fc)
		if off+count*2 > len(wordDoc) {
			return "", errors.New("piece points outside WordDocument")
		}
		units := make([]uint16, count)
		for j := range units {
			units[j] = le.Uint16(wordDoc[off+j*2:])
		}
		b.WriteString(string(utf16.Decode(units)))
	}
	return b.String(), nil
}

// splitDocText turns Word control characters into paragraphs, dropping
// field codes and keeping field results.
func splitDocText(text string) []string {
	var (
		out   []string
		cur   strings.Builder
		stack []bool // per open field: true while in its code part
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	inCode := func() bool {
		for _, code := range stack {
			if code {
				return true
			}
		}
		return false
	}
	for _, r := range text {
		switch r {
		case 0x13:
			stack = append(stack, true)
			continue
		case 0x14:
			if len(stack) > 0 {
				stack[len(stack)-1] = false
			}
			continue
		case 0x15:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if inCode() {
			continue
		}
		switch r {
		case '\r', 0x0C:
			flush()
		case 0x07:
			cur.WriteRune('\t')
		case 0x0B:
			cur.WriteRune('\n')
		default:
			if r >= 0x20 || r == '\t' {
				cur.WriteRune(r)
			}
		}
	}
	flush()
	return out
}
