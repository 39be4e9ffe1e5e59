package convert

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/customeros/attachstack/internal/enum"
)

type excelConverter struct{}

func newExcelConverter() *excelConverter {
	return &excelConverter{}
}

func (c *excelConverter) Kind() enum.ConverterKind {
	return enum.ConverterExcel
}

// Convert renders every sheet in workbook order, one tab-separated line per
// row, each sheet prefixed with its name.
func (c *excelConverter) Convert(ctx context.Context, content []byte) (string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to open workbook")
	}
	defer file.Close()

	var sections []string
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read sheet %s", sheet)
		}

		var sb strings.Builder
		sb.WriteString("[" + sheet + "]")
		for _, row := range rows {
			sb.WriteByte('\n')
			sb.WriteString(strings.Join(row, "\t"))
		}
		sections = append(sections, sb.String())
	}
	return strings.Join(sections, sectionSeparator), nil
}
