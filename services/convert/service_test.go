package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"github.com/customeros/attachstack/internal/enum"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
)

func getTestLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newTestService(t *testing.T) *conversionService {
	t.Helper()
	return NewConversionService(getTestLogger()).(*conversionService)
}

func ref(filename string) models.AttachmentRef {
	return models.AttachmentRef{
		MessageID:    "msg-1",
		AttachmentID: "att-1",
		Filename:     filename,
	}
}

// buildZip assembles an in-memory zip with the given entries
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const wordDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestConvert_Docx(t *testing.T) {
	s := newTestService(t)
	content := buildZip(t, map[string]string{"word/document.xml": wordDocumentXML})

	result := s.Convert(context.Background(), ref("memo.docx"), content)

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterWord, result.ConverterUsed)
	assert.Contains(t, result.OutputText, "First paragraph")
	assert.Contains(t, result.OutputText, "Second paragraph")
}

func TestConvert_Pptx_SlidesInOrder(t *testing.T) {
	s := newTestService(t)
	slide := func(text string) string {
		return `<p:sld xmlns:p="urn:p" xmlns:a="urn:a"><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sld>`
	}
	content := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slide("slide ten"),
		"ppt/slides/slide1.xml":  slide("slide one"),
		"ppt/slides/slide2.xml":  slide("slide two"),
	})

	result := s.Convert(context.Background(), ref("deck.pptx"), content)

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterPowerPoint, result.ConverterUsed)
	one := bytes.Index([]byte(result.OutputText), []byte("slide one"))
	two := bytes.Index([]byte(result.OutputText), []byte("slide two"))
	ten := bytes.Index([]byte(result.OutputText), []byte("slide ten"))
	assert.True(t, one < two && two < ten, "slides must keep numeric order: %q", result.OutputText)
}

func TestConvert_Hwpx(t *testing.T) {
	s := newTestService(t)
	section := `<hs:sec xmlns:hs="urn:hs" xmlns:hp="urn:hp"><hp:p><hp:run><hp:t>한글 문서 내용</hp:t></hp:run></hp:p></hs:sec>`
	content := buildZip(t, map[string]string{"Contents/section0.xml": section})

	result := s.Convert(context.Background(), ref("doc.hwpx"), content)

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterHWPX, result.ConverterUsed)
	assert.Contains(t, result.OutputText, "한글 문서 내용")
}

func TestConvert_Xlsx(t *testing.T) {
	s := newTestService(t)

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "amount"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widgets"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result := s.Convert(context.Background(), ref("ledger.xlsx"), buf.Bytes())

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterExcel, result.ConverterUsed)
	assert.Contains(t, result.OutputText, "[Sheet1]")
	assert.Contains(t, result.OutputText, "name\tamount")
	assert.Contains(t, result.OutputText, "widgets\t42")
}

func TestConvert_PlaintextPassThrough(t *testing.T) {
	s := newTestService(t)

	result := s.Convert(context.Background(), ref("notes.txt"), []byte("plain utf-8 text"))

	require.True(t, result.Succeeded)
	assert.Equal(t, enum.ConverterPlaintext, result.ConverterUsed)
	assert.Equal(t, "plain utf-8 text", result.OutputText)
}

func TestConvert_PlaintextEUCKRDecoded(t *testing.T) {
	s := newTestService(t)

	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("안녕하세요 세계"))
	require.NoError(t, err)

	result := s.Convert(context.Background(), ref("readme.txt"), encoded)

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Contains(t, result.OutputText, "안녕하세요")
}

func TestConvert_HTML(t *testing.T) {
	s := newTestService(t)

	result := s.Convert(context.Background(), ref("page.html"), []byte("<html><body><h1>Title</h1><p>Body text</p></body></html>"))

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterHTML, result.ConverterUsed)
	assert.Contains(t, result.OutputText, "Title")
	assert.Contains(t, result.OutputText, "Body text")
}

func TestConvert_EML(t *testing.T) {
	s := newTestService(t)
	raw := []byte("From: jane@acme.com\r\n" +
		"To: john@acme.com\r\n" +
		"Subject: quarterly numbers\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See attached spreadsheet.\r\n")

	result := s.Convert(context.Background(), ref("forwarded.eml"), raw)

	require.True(t, result.Succeeded, result.ErrorReason)
	assert.Equal(t, enum.ConverterEML, result.ConverterUsed)
	assert.Contains(t, result.OutputText, "Subject: quarterly numbers")
	assert.Contains(t, result.OutputText, "See attached spreadsheet.")
}

func TestConvert_LegacyFormatsUnsupported(t *testing.T) {
	s := newTestService(t)

	for _, filename := range []string{"old.doc", "old.xls", "old.ppt"} {
		result := s.Convert(context.Background(), ref(filename), []byte("legacy binary"))
		assert.False(t, result.Succeeded, filename)
		assert.Equal(t, er.KindUnsupportedFormat, result.ErrorKind, filename)
	}
}

func TestConvert_UnknownExtensionUnsupported(t *testing.T) {
	s := newTestService(t)

	result := s.Convert(context.Background(), ref("photo.jpg"), []byte{0xFF, 0xD8})

	assert.False(t, result.Succeeded)
	assert.Equal(t, er.KindUnsupportedFormat, result.ErrorKind)
}

func TestConvert_CorruptDocumentFailsWithConversionFailure(t *testing.T) {
	s := newTestService(t)

	result := s.Convert(context.Background(), ref("broken.pdf"), []byte("this is not a pdf"))

	assert.False(t, result.Succeeded)
	assert.Equal(t, er.KindConversionFailure, result.ErrorKind)
	assert.NotEmpty(t, result.ErrorReason)
}

func TestConvert_ExtensionCaseInsensitive(t *testing.T) {
	s := newTestService(t)

	result := s.Convert(context.Background(), ref("NOTES.TXT"), []byte("upper case extension"))

	require.True(t, result.Succeeded)
	assert.Equal(t, "upper case extension", result.OutputText)
}

func TestConvert_Idempotent(t *testing.T) {
	s := newTestService(t)
	content := buildZip(t, map[string]string{"word/document.xml": wordDocumentXML})

	first := s.Convert(context.Background(), ref("memo.docx"), content)
	second := s.Convert(context.Background(), ref("memo.docx"), content)

	require.True(t, first.Succeeded)
	assert.Equal(t, first.OutputText, second.OutputText)
}

func TestConvertAll_KeepsInputOrder(t *testing.T) {
	s := newTestService(t)

	attachments := []*models.FetchedAttachment{
		{AttachmentRef: ref("a.txt"), Content: []byte("first")},
		{AttachmentRef: ref("b.unknown"), Content: []byte("second")},
		{AttachmentRef: ref("c.txt"), Content: []byte("third")},
	}

	results := s.ConvertAll(context.Background(), attachments)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].OutputText)
	assert.False(t, results[1].Succeeded)
	assert.Equal(t, "third", results[2].OutputText)
}
