package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// table is a header-indexed view of a CSV or XLSX export.
type table struct {
	index map[string]int
	rows  [][]string
}

// readTable loads the first sheet of an XLSX file or a CSV file, chosen by extension.
func readTable(path string) (*table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return readCSV(f)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return newTable(rows)
}

func readCSV(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return newTable(rows)
}

func newTable(rows [][]string) (*table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("export has no header row")
	}
	t := &table{index: make(map[string]int, len(rows[0]))}
	for i, name := range rows[0] {
		key := normalizeColumnName(name)
		if _, seen := t.index[key]; !seen {
			t.index[key] = i
		}
	}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// col returns the index of the first header matching any of the names, or -1.
func (t *table) col(names ...string) int {
	for _, name := range names {
		if idx, ok := t.index[normalizeColumnName(name)]; ok {
			return idx
		}
	}
	return -1
}

// require resolves a mandatory column.
func (t *table) require(names ...string) (int, error) {
	idx := t.col(names...)
	if idx < 0 {
		return -1, fmt.Errorf("missing required column %q", names[0])
	}
	return idx, nil
}

func normalizeColumnName(name string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "\ufeff", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber accepts plain and thousands-separated numbers. Empty cells are
// reported as absent.
func parseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.EqualFold(s, "false") || strings.EqualFold(s, "none") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

// parseID reads identifiers exported either as plain numbers or as ERP
// many2one pairs such as "[12, 'Calle 50']" or "12,Calle 50".
func parseID(s string) (int64, string, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]()")
	if s == "" {
		return 0, "", fmt.Errorf("empty identifier")
	}
	head, label, _ := strings.Cut(s, ",")
	id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(head), ".0")), 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid identifier %q", s)
	}
	return id, strings.Trim(strings.TrimSpace(label), `'"`), nil
}

// timeLayouts accepts ISO dates and the day-first forms spreadsheet tools
// produce under a Spanish locale. Month-first dates are never tried.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2/1/06 15:04",
	"2/1/06",
	"02-01-2006",
}

func parseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "false") {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
