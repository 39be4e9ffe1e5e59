package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/customeros/attachstack/internal/enum"
)

// The zip-packaged XML formats (docx, pptx, hwpx) share one extraction walk:
// character data inside text elements, a newline per closed paragraph.

func openZip(content []byte) (*zip.Reader, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open zip container")
	}
	return reader, nil
}

func zipEntry(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name == name {
			rc, err := file.Open()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to open %s", name)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, errors.Errorf("%s not found in container", name)
}

// extractXMLText collects character data inside elements locally named
// textElem and emits a newline whenever paraElem closes.
func extractXMLText(data []byte, textElem, paraElem string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	inText := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "malformed document xml")
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				inText++
			}
		case xml.EndElement:
			if t.Name.Local == textElem {
				inText--
			} else if t.Name.Local == paraElem {
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText > 0 {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// numberedEntries returns the zip entries matching pattern, ordered by their
// numeric suffix so slides and sections keep natural document order.
func numberedEntries(reader *zip.Reader, pattern *regexp.Regexp) []string {
	type numbered struct {
		name string
		num  int
	}
	var entries []numbered
	for _, file := range reader.File {
		match := pattern.FindStringSubmatch(file.Name)
		if match == nil {
			continue
		}
		num, _ := strconv.Atoi(match[1])
		entries = append(entries, numbered{name: file.Name, num: num})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].num < entries[j].num })

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

type wordConverter struct{}

func newWordConverter() *wordConverter {
	return &wordConverter{}
}

func (c *wordConverter) Kind() enum.ConverterKind {
	return enum.ConverterWord
}

func (c *wordConverter) Convert(ctx context.Context, content []byte) (string, error) {
	reader, err := openZip(content)
	if err != nil {
		return "", err
	}
	document, err := zipEntry(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	return extractXMLText(document, "t", "p")
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type powerPointConverter struct{}

func newPowerPointConverter() *powerPointConverter {
	return &powerPointConverter{}
}

func (c *powerPointConverter) Kind() enum.ConverterKind {
	return enum.ConverterPowerPoint
}

func (c *powerPointConverter) Convert(ctx context.Context, content []byte) (string, error) {
	reader, err := openZip(content)
	if err != nil {
		return "", err
	}

	names := numberedEntries(reader, slidePattern)
	if len(names) == 0 {
		return "", errors.New("presentation has no slides")
	}

	var slides []string
	for _, name := range names {
		data, err := zipEntry(reader, name)
		if err != nil {
			return "", err
		}
		text, err := extractXMLText(data, "t", "p")
		if err != nil {
			return "", err
		}
		slides = append(slides, text)
	}
	return strings.Join(slides, sectionSeparator), nil
}

var hwpxSectionPattern = regexp.MustCompile(`^Contents/section(\d+)\.xml$`)

type hwpxConverter struct{}

func newHWPXConverter() *hwpxConverter {
	return &hwpxConverter{}
}

func (c *hwpxConverter) Kind() enum.ConverterKind {
	return enum.ConverterHWPX
}

func (c *hwpxConverter) Convert(ctx context.Context, content []byte) (string, error) {
	reader, err := openZip(content)
	if err != nil {
		return "", err
	}

	names := numberedEntries(reader, hwpxSectionPattern)
	if len(names) == 0 {
		return "", errors.New("hwpx document has no sections")
	}

	var sections []string
	for _, name := range names {
		data, err := zipEntry(reader, name)
		if err != nil {
			return "", err
		}
		text, err := extractXMLText(data, "t", "p")
		if err != nil {
			return "", err
		}
		sections = append(sections, text)
	}
	return strings.Join(sections, sectionSeparator), nil
}
