package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iago/atomize-client/internal/render"
	"github.com/xuri/excelize/v2"
)

func sampleView() render.View {
	return render.View{
		Summary: "A talk about shipping.",
		Tabs: []render.Tab{
			{Label: "LinkedIn", Items: []render.ItemView{{Header: "li-1", Body: "{\n  \"text\": \"first\"\n}"}}},
			{Label: "X"},
			{Label: "Instagram"},
			{Label: "Blog"},
		},
		Posters:    []render.Link{{Group: "ai", Name: "a1.png", URL: "/files/a1.png"}},
		Docs:       []render.Link{{Name: "report.pdf", URL: "/files/report.pdf"}},
		TotalPosts: 1,
	}
}

func TestWorkbookBytesWritesSheets(t *testing.T) {
	data, err := WorkbookBytes("abc", sampleView())
	if err != nil {
		t.Fatalf("expected workbook, got %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	want := []string{"Summary", "LinkedIn", "X", "Instagram", "Blog", "Posters", "Docs", "Cards"}
	got := f.GetSheetList()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected sheets %v, got %v", want, got)
	}

	summary, err := f.GetCellValue("Summary", "B2")
	if err != nil || summary != "abc" {
		t.Fatalf("expected job id in B2, got %q (%v)", summary, err)
	}

	rows, err := f.GetRows("LinkedIn")
	if err != nil {
		t.Fatalf("read LinkedIn rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "li-1" || !strings.Contains(rows[1][2], "first") {
		t.Fatalf("unexpected LinkedIn rows %v", rows)
	}

	posters, _ := f.GetRows("Posters")
	if len(posters) != 2 || posters[1][0] != "ai" || posters[1][2] != "/files/a1.png" {
		t.Fatalf("unexpected poster rows %v", posters)
	}
}

func TestClipLongCells(t *testing.T) {
	long := strings.Repeat("a", maxCellChars+10)
	if got := clip(long); len([]rune(got)) != maxCellChars {
		t.Fatalf("expected clipped cell of %d runes, got %d", maxCellChars, len([]rune(got)))
	}
	if got := clip("short"); got != "short" {
		t.Fatalf("expected short value untouched, got %q", got)
	}
}

func TestWriteRowsReportsMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	err := writeRows(f, "Missing", []string{"Group", "Name", "URL"}, nil)
	if err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("expected missing sheet error, got %v", err)
	}
}

func TestSetWidthsReportsBadColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	if err := setWidths(f, "Sheet1", colWidth{"A", "A", 10}); err != nil {
		t.Fatalf("expected valid width, got %v", err)
	}
	if err := setWidths(f, "Sheet1", colWidth{"1", "A", 10}); err == nil {
		t.Fatalf("expected error for invalid column name")
	}
}
