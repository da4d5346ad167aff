// Package export turns a computed replenishment run into the order workbooks,
// the audit log and the downloadable bundle handed to purchasing.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const sheetName = "Pedido"

// Columns is the header of every order workbook.
var Columns = []string{"Código", "Referencia Interna", "Descripción", "Cantidad", "Categoría"}

// Manifest lists what a run wrote, relative to Dir.
type Manifest struct {
	Sequence string
	Dir      string
	Files    []string
	AuditLog string
}

// Writer lays a run out on disk under OutputDir.
type Writer struct {
	OutputDir string
	Now       func() time.Time
	logger    zerolog.Logger
}

func NewWriter(outputDir string, logger zerolog.Logger) *Writer {
	return &Writer{OutputDir: outputDir, Now: time.Now, logger: logger}
}

// RunDirName is the folder holding every file of the run with the given sequence.
func RunDirName(seq string) string {
	return "Pedidos_Sugeridos_" + seq
}

// Write exports the partition and the audit log of a run. Nothing is written
// for suppressed buckets since the partition already left them out.
// Files are staged in a hidden folder under OutputDir that only becomes the
// run folder once every file is written; on error it is removed.
func (w *Writer) Write(result *replenishment.Result, seq string) (_ *Manifest, err error) {
	if result == nil {
		return nil, fmt.Errorf("nothing to export")
	}
	if seq == "" {
		return nil, fmt.Errorf("run sequence is required")
	}

	final := filepath.Join(w.OutputDir, RunDirName(seq))
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("run dir %s already exists", final)
	}
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	staging, err := os.MkdirTemp(w.OutputDir, "."+RunDirName(seq)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				w.logger.Warn().Err(rmErr).Str("dir", staging).Msg("Failed to remove staging dir")
			}
		}
	}()

	m := &Manifest{Sequence: seq, Dir: staging}

	for _, rg := range result.Partition.Routes {
		routeDir := fmt.Sprintf("%s_PEDIDO_%s", rg.Route, seq)

		for _, sg := range rg.Stores {
			storeName := StoreFileName(sg.Store)
			for _, bl := range sg.Buckets {
				name := fmt.Sprintf("%s_%s_%s_%s.xlsx", storeName, rg.Route, bucketLabel(bl.Bucket), seq)
				if err := w.workbook(m, filepath.Join(routeDir, storeName, name), bl.Lines); err != nil {
					return nil, err
				}
			}
		}

		for _, bl := range rg.Masters {
			name := fmt.Sprintf("MASTER_%s_%s_%s.xlsx", bucketLabel(bl.Bucket), rg.Route, seq)
			if err := w.workbook(m, filepath.Join(routeDir, name), bl.Lines); err != nil {
				return nil, err
			}
		}
	}

	for _, bl := range result.Partition.Consolidated {
		name := fmt.Sprintf("CONSOLIDADO_%s_%s.xlsx", bucketLabel(bl.Bucket), seq)
		if err := w.workbook(m, name, bl.Lines); err != nil {
			return nil, err
		}
	}

	if len(result.Partition.Global) > 0 {
		if err := w.workbook(m, fmt.Sprintf("MASTER_GLOBAL_%s.xlsx", seq), result.Partition.Global); err != nil {
			return nil, err
		}
	}

	m.AuditLog = fmt.Sprintf("log_pedidos_%s.txt", seq)
	if err := w.auditLog(m, result); err != nil {
		return nil, err
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to publish run dir: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return nil, fmt.Errorf("failed to publish run dir: %w", err)
	}
	m.Dir = final

	w.logger.Info().
		Str("sequence", seq).
		Str("dir", m.Dir).
		Int("files", len(m.Files)).
		Msg("Run exported")

	return m, nil
}

func (w *Writer) workbook(m *Manifest, rel string, lines []replenishment.OrderLine) error {
	path := filepath.Join(m.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := WriteOrderWorkbook(path, lines); err != nil {
		return err
	}
	m.Files = append(m.Files, filepath.ToSlash(rel))
	return nil
}

func (w *Writer) auditLog(m *Manifest, result *replenishment.Result) error {
	f, err := os.Create(filepath.Join(m.Dir, m.AuditLog))
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if err := WriteAuditLog(f, result.Audit, result.Partition, now()); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	m.Files = append(m.Files, m.AuditLog)
	return nil
}

// WriteOrderWorkbook writes one order list as a single-sheet workbook.
func WriteOrderWorkbook(path string, lines []replenishment.OrderLine) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "E1", style)
	}

	for i, l := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{l.Barcode, l.Reference, l.Description, l.Quantity, l.Category}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheetName, "C", "C", 48)
	_ = f.SetColWidth(sheetName, "E", "E", 36)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

var titleCaser = cases.Title(language.Spanish)

// StoreFileName renders a normalized store name as used in folder and file
// names: "calle 50" becomes "Calle_50".
func StoreFileName(store string) string {
	return strings.ReplaceAll(titleCaser.String(strings.TrimSpace(store)), " ", "_")
}

func bucketLabel(b replenishment.Bucket) string {
	return strings.ToUpper(string(b))
}
