package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"ragchat/types"
)

// loadSpreadsheet produces one document per sheet. Rows are rendered as
// comma-joined lines, the same shape the csv loader emits.
func (l *Loader) loadSpreadsheet(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", src.Path, err)
	}
	defer f.Close()

	title := titleFromPath(src.Path)
	var docs []types.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, src.Path, err)
		}
		var b strings.Builder
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, ", "))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		if b.Len() == 0 {
			continue
		}
		docs = append(docs, newDocument(b.String(), map[string]string{
			"source": src.Key(),
			"title":  title,
			"sheet":  sheet,
		}))
	}
	return docs, nil
}

// loadLegacySpreadsheet reads pre-OOXML BIFF workbooks, which excelize
// cannot open. Output shape matches loadSpreadsheet.
func (l *Loader) loadLegacySpreadsheet(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	wb, closer, err := xls.OpenWithCloser(src.Path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", src.Path, err)
	}
	defer closer.Close()

	title := titleFromPath(src.Path)
	var docs []types.Document
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var b strings.Builder
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			line := strings.TrimSpace(strings.Join(cells, ", "))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		if b.Len() == 0 {
			continue
		}
		docs = append(docs, newDocument(b.String(), map[string]string{
			"source": src.Key(),
			"title":  title,
			"sheet":  sheet.Name,
		}))
	}
	return docs, nil
}
