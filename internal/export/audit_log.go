package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
)

var (
	rule    = strings.Repeat("=", 80)
	subrule = strings.Repeat("-", 50)
)

// logWriter keeps the first write error so sections can be written without
// checking every line.
type logWriter struct {
	w   io.Writer
	err error
}

func (lw *logWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

func (lw *logWriter) section(title string) {
	lw.printf("%s\n%s\n", title, subrule)
}

func (lw *logWriter) end() {
	lw.printf("\n%s\n\n", rule)
}

// WriteAuditLog renders the human-readable run log handed to purchasing.
func WriteAuditLog(w io.Writer, report replenishment.AuditReport, partition replenishment.Partition, at time.Time) error {
	lw := &logWriter{w: w}

	lw.printf("LOG DE PEDIDOS SUGERIDOS - %s\n%s\n\n", at.Format("2006-01-02 15:04:05"), rule)

	lw.section("PRODUCTOS NUEVOS AGREGADOS")
	for _, p := range report.NewProducts {
		lw.printf("• %s - Categoría: %s - Tiendas: %d - Unidades: %d\n", p.Description, p.Category, len(p.Stores), p.Units)
	}
	lw.end()

	lw.section("DETALLE DE PRODUCTOS ENVIADOS POR TIENDA")
	summaries := make(map[string]replenishment.StoreSummary, len(report.Stores))
	for _, s := range report.Stores {
		summaries[s.Store] = s
	}
	for _, rg := range partition.Routes {
		for _, sg := range rg.Stores {
			s := summaries[sg.Store]
			lw.printf("\n%s (%s)\n", strings.ToUpper(sg.Store), rg.Route)

			counts := map[replenishment.Bucket]replenishment.BucketSummary{}
			for _, b := range s.Buckets {
				counts[b.Bucket] = b
			}
			for _, b := range replenishment.ReportBuckets {
				if b == replenishment.BucketOther && counts[b].Lines == 0 {
					continue
				}
				c := counts[b]
				lw.printf("   %s: %d unidades, %d líneas\n", titleCaser.String(string(b)), c.Units, c.Lines)
			}
			lw.printf("   TOTAL: %d unidades, %d líneas\n", s.TotalUnits, s.TotalLines)
		}
	}
	lw.end()

	lw.section("PRODUCTOS NO ORDENADOS MANUALMENTE (qty_to_order = 0 pero recomendados)")
	var store string
	for _, u := range report.Unordered {
		if u.Store != store {
			store = u.Store
			lw.printf("\n%s\n", strings.ToUpper(store))
		}
		lw.printf("• %s - Cantidad Recomendada: %g - Enviado: %d\n", u.Description, u.Recommended, u.Granted)
	}
	lw.end()

	lw.section("DEMANDA NO CUBIERTA POR STOCK DE BODEGA")
	for _, s := range report.Shortfalls {
		lw.printf("• %s - %s: solicitado %d, asignado %d (%s)\n", s.Description, strings.ToUpper(s.Store), s.Requested, s.Granted, s.Reason)
	}
	lw.end()

	lw.section("PRODUCTOS CON UNIDAD DE REPOSICIÓN INVÁLIDA")
	for _, p := range report.InvalidUnits {
		lw.printf("• [%d] %s - unidad: %d\n", p.ProductID, p.Description, p.ReorderUnit)
	}
	lw.end()

	lw.section("LÍNEAS OMITIDAS")
	for _, s := range report.Skipped {
		lw.printf("• línea %d - producto %d - tienda %s: %s\n", s.Index+1, s.ProductID, s.Store, s.Cause)
	}

	return lw.err
}
