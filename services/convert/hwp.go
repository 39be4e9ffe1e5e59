package convert

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
	"github.com/richardlehane/mscfb"

	"github.com/customeros/attachstack/internal/enum"
)

// HWP v5 is an OLE compound file: a FileHeader stream plus BodyText/SectionN
// streams of (optionally deflated) tagged records. Paragraph text lives in
// records tagged HWPTAG_PARA_TEXT as UTF-16LE with inline control words.

const (
	hwpSignature   = "HWP Document File"
	hwpTagParaText = 67
)

type hwpConverter struct{}

func newHWPConverter() *hwpConverter {
	return &hwpConverter{}
}

func (c *hwpConverter) Kind() enum.ConverterKind {
	return enum.ConverterHWP
}

func (c *hwpConverter) Convert(ctx context.Context, content []byte) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to open compound file")
	}

	var header []byte
	type section struct {
		index int
		data  []byte
	}
	var sections []section

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch {
		case entry.Name == "FileHeader" && len(entry.Path) == 0:
			header = make([]byte, entry.Size)
			if _, err := io.ReadFull(entry, header); err != nil {
				return "", errors.Wrap(err, "failed to read file header")
			}
		case len(entry.Path) == 1 && entry.Path[0] == "BodyText" && strings.HasPrefix(entry.Name, "Section"):
			index, convErr := strconv.Atoi(strings.TrimPrefix(entry.Name, "Section"))
			if convErr != nil {
				continue
			}
			data := make([]byte, entry.Size)
			if _, err := io.ReadFull(entry, data); err != nil {
				return "", errors.Wrapf(err, "failed to read %s", entry.Name)
			}
			sections = append(sections, section{index: index, data: data})
		}
	}

	if len(header) < 40 || !strings.HasPrefix(string(header), hwpSignature) {
		return "", errors.New("not a hwp v5 document")
	}
	if len(sections) == 0 {
		return "", errors.New("hwp document has no body sections")
	}
	compressed := binary.LittleEndian.Uint32(header[36:40])&1 == 1

	sort.Slice(sections, func(i, j int) bool { return sections[i].index < sections[j].index })

	var parts []string
	for _, s := range sections {
		data := s.data
		if compressed {
			inflated, err := io.ReadAll(flate.NewReader(bytes.NewReader(data)))
			if err != nil {
				return "", errors.Wrapf(err, "failed to inflate section %d", s.index)
			}
			data = inflated
		}
		if text := extractHWPText(data); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, sectionSeparator), nil
}

// extractHWPText walks the record stream and decodes paragraph text records
func extractHWPText(data []byte) string {
	var sb strings.Builder
	pos := 0
	for pos+4 <= len(data) {
		header := binary.LittleEndian.Uint32(data[pos:])
		pos += 4

		tag := header & 0x3FF
		size := int(header >> 20 & 0xFFF)
		if size == 0xFFF {
			if pos+4 > len(data) {
				break
			}
			size = int(binary.LittleEndian.Uint32(data[pos:]))
			pos += 4
		}
		if pos+size > len(data) {
			break
		}
		if tag == hwpTagParaText {
			sb.WriteString(decodeHWPParaText(data[pos : pos+size]))
			sb.WriteByte('\n')
		}
		pos += size
	}
	return strings.TrimSpace(sb.String())
}

// decodeHWPParaText decodes UTF-16LE paragraph text. Control words below 32
// are either one word or an eight word inline control block.
func decodeHWPParaText(payload []byte) string {
	var units []uint16
	for i := 0; i+1 < len(payload); i += 2 {
		ch := binary.LittleEndian.Uint16(payload[i:])
		if ch >= 32 {
			units = append(units, ch)
			continue
		}
		switch ch {
		case 9:
			units = append(units, '\t')
		case 10, 13:
			units = append(units, '\n')
		case 1, 2, 3, 11, 12, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23:
			// extended/inline control: the next seven words are payload
			i += 14
		}
	}
	return string(utf16.Decode(units))
}
