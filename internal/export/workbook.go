package export

import (
	"fmt"
	"strings"

	"github.com/iago/atomize-client/internal/render"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	postersSheet = "Posters"
	docsSheet    = "Docs"
	cardsSheet   = "Cards"

	// maxCellChars is the per-cell text limit of the XLSX format.
	maxCellChars = 32767
)

// WorkbookBytes writes a rendered results view as an XLSX workbook: one
// summary sheet, one sheet per channel tab, then posters, docs and cards.
func WorkbookBytes(jobID string, view render.View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeRows(f, summarySheet, []string{"Field", "Value"}, [][]string{
		{"Job", jobID},
		{"Summary", view.Summary},
		{"Total posts", fmt.Sprintf("%d", view.TotalPosts)},
	}); err != nil {
		return nil, err
	}
	if err := setWidths(f, summarySheet, colWidth{"A", "A", 14}, colWidth{"B", "B", 80}); err != nil {
		return nil, err
	}

	for _, tab := range view.Tabs {
		if _, err := f.NewSheet(tab.Label); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", tab.Label, err)
		}
		rows := make([][]string, 0, len(tab.Items))
		for position, item := range tab.Items {
			rows = append(rows, []string{fmt.Sprintf("%d", position+1), item.Header, item.Body})
		}
		if err := writeRows(f, tab.Label, []string{"#", "ID", "Draft"}, rows); err != nil {
			return nil, err
		}
		if err := setWidths(f, tab.Label, colWidth{"A", "A", 6}, colWidth{"B", "B", 18}, colWidth{"C", "C", 100}); err != nil {
			return nil, err
		}
	}

	linkSheets := []struct {
		name  string
		links []render.Link
	}{
		{postersSheet, view.Posters},
		{docsSheet, view.Docs},
		{cardsSheet, view.Cards},
	}
	for _, sheet := range linkSheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}
		rows := make([][]string, 0, len(sheet.links))
		for _, link := range sheet.links {
			rows = append(rows, []string{link.Group, link.Name, link.URL})
		}
		if err := writeRows(f, sheet.name, []string{"Group", "Name", "URL"}, rows); err != nil {
			return nil, err
		}
		if err := setWidths(f, sheet.name, colWidth{"A", "B", 22}, colWidth{"C", "C", 60}); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for rowIndex, row := range rows {
		if err := writeRow(f, sheet, rowIndex+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name %s row %d: %w", sheet, row, err)
		}
		if err := f.SetCellValue(sheet, cell, clip(value)); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

type colWidth struct {
	start, end string
	width      float64
}

func setWidths(f *excelize.File, sheet string, widths ...colWidth) error {
	for _, w := range widths {
		if err := f.SetColWidth(sheet, w.start, w.end, w.width); err != nil {
			return fmt.Errorf("column width %s!%s:%s: %w", sheet, w.start, w.end, err)
		}
	}
	return nil
}

func clip(value string) string {
	if len(value) <= maxCellChars {
		return value
	}
	return strings.ToValidUTF8(value[:maxCellChars-1], "") + "…"
}
