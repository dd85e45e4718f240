// Package export writes a crawl result to disk as a pair of files: a
// machine-readable JSON dump and a formatted XLSX workbook readers can
// open directly. Each run produces a self-contained pair.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"github.com/sjlee/hanmicrawl/article"
)

const (
	filePrefix = "hanmi_articles"
	sheetName  = "기사목록"
)

// columns are written in this order. Headers are the site's language;
// they are data for the reader, like the sentinels.
var columns = []struct {
	header string
	width  float64
}{
	{"제목", 50},
	{"저자", 25},
	{"등록일시", 20},
	{"본문", 120},
	{"URL", 60},
	{"크롤링일시", 20},
}

const (
	contentColWidth = 120 // characters per visual line in the content column
	minRowHeight    = 45
	maxRowHeight    = 400
	lineHeight      = 15
)

// FileSink delivers crawl results to a directory on disk.
type FileSink struct {
	// Dir is the output directory. Empty means the working directory.
	Dir string
}

// Name identifies the sink in progress output and run history.
func (s *FileSink) Name() string { return "file" }

// Deliver writes the JSON and XLSX pair for the result. File names
// carry the target date and the wall-clock write time so repeated runs
// never collide.
func (s *FileSink) Deliver(result *article.CrawlResult) error {
	_, _, err := Files(result, s.Dir)
	return err
}

// Files writes both output files and returns their paths.
func Files(result *article.CrawlResult, dir string) (jsonPath, xlsxPath string, err error) {
	stem := fmt.Sprintf("%s_%s_%s",
		filePrefix,
		result.Target.Date.Format("20060102"),
		time.Now().Format("150405"),
	)
	jsonPath = filepath.Join(dir, stem+".json")
	xlsxPath = filepath.Join(dir, stem+".xlsx")

	if err := writeJSON(result.Articles, jsonPath); err != nil {
		return "", "", err
	}
	if err := writeXLSX(result.Articles, xlsxPath); err != nil {
		return "", "", err
	}
	return jsonPath, xlsxPath, nil
}

func writeJSON(articles []article.Article, path string) error {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeXLSX(articles []article.Article, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("body style: %w", err)
	}

	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		cell := name + "1"
		if err := f.SetCellValue(sheetName, cell, col.header); err != nil {
			return fmt.Errorf("write header %s: %w", col.header, err)
		}
		if err := f.SetColWidth(sheetName, name, name, col.width); err != nil {
			return fmt.Errorf("set width %s: %w", name, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for i, a := range articles {
		row := i + 2
		values := []any{
			a.Title,
			orBlank(a.Author),
			orBlank(a.PublishedAt),
			a.Content,
			a.URL,
			a.CrawledAt.Format(time.RFC3339),
		}
		for j, v := range values {
			name, _ := excelize.ColumnNumberToName(j + 1)
			if err := f.SetCellValue(sheetName, fmt.Sprintf("%s%d", name, row), v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
		first := fmt.Sprintf("A%d", row)
		last := fmt.Sprintf("%s%d", lastCol, row)
		if err := f.SetCellStyle(sheetName, first, last, bodyStyle); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
		if err := f.SetRowHeight(sheetName, row, rowHeight(a.Content)); err != nil {
			return fmt.Errorf("set height row %d: %w", row, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// rowHeight estimates how tall a wrapped content cell renders. Korean
// text occupies two cells per rune, so the estimate uses display width
// rather than rune count.
func rowHeight(content string) float64 {
	lines := runewidth.StringWidth(content)/contentColWidth + 1
	h := float64(lines * lineHeight)
	if h < minRowHeight {
		return minRowHeight
	}
	if h > maxRowHeight {
		return maxRowHeight
	}
	return h
}

func orBlank(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
