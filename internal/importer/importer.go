package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// Importer feeds spreadsheet rows through the same reconciliation path as
// provider change records. Rows are processed strictly sequentially.
type Importer struct {
	engine *reconciler.Engine
	logger *logger.Logger
}

func New(engine *reconciler.Engine, log *logger.Logger) *Importer {
	return &Importer{engine: engine, logger: log}
}

// column headers recognized on the first row, accent- and case-insensitive
var columnFields = map[string]func(rec *provider.ChangeRecord, v string){
	"NUMERO":           func(r *provider.ChangeRecord, v string) { r.Docket = v },
	"RADICADO":         func(r *provider.ChangeRecord, v string) { r.Docket = v },
	"DESPACHO":         func(r *provider.ChangeRecord, v string) { r.Office = v },
	"JUZGADO":          func(r *provider.ChangeRecord, v string) { r.Office = v },
	"CIUDAD":           func(r *provider.ChangeRecord, v string) { r.City = v },
	"DEMANDANTE":       func(r *provider.ChangeRecord, v string) { r.Plaintiffs = v },
	"DEMANDANTES":      func(r *provider.ChangeRecord, v string) { r.Plaintiffs = v },
	"DEMANDADO":        func(r *provider.ChangeRecord, v string) { r.Defendants = v },
	"DEMANDADOS":       func(r *provider.ChangeRecord, v string) { r.Defendants = v },
	"ULTIMA ACTUACION": func(r *provider.ChangeRecord, v string) { r.LastAction = v },
	"ACTUACION":        func(r *provider.ChangeRecord, v string) { r.LastAction = v },
	"FECHA ACTUACION":  func(r *provider.ChangeRecord, v string) { r.ActionDate = v },
	"ANOTACION":        func(r *provider.ChangeRecord, v string) { r.Annotation = v },
	"OBSERVACIONES":    func(r *provider.ChangeRecord, v string) { r.Annotation = v },
	"TIPO PROCESO":     func(r *provider.ChangeRecord, v string) { r.ProcessType = v },
	"JURISDICCION":     func(r *provider.ChangeRecord, v string) { r.Jurisdiction = v },
}

var headerFolder = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ñ", "N",
	"á", "A", "é", "E", "í", "I", "ó", "O", "ú", "U", "ñ", "N",
	"_", " ", ".", "",
)

func foldHeader(s string) string {
	return strings.Join(strings.Fields(headerFolder.Replace(strings.ToUpper(s))), " ")
}

// ImportFromSpreadsheet reads the first sheet of an xlsx file and reconciles
// each data row. Unrecognized columns are ignored; rows shorter than the
// header are padded with empty values.
func (i *Importer) ImportFromSpreadsheet(r io.Reader) (*reconciler.Summary, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer book.Close()

	sheet := book.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}

	setters := make([]func(rec *provider.ChangeRecord, v string), len(rows[0]))
	recognized := 0
	for col, header := range rows[0] {
		if setter, ok := columnFields[foldHeader(header)]; ok {
			setters[col] = setter
			recognized++
		}
	}
	if recognized == 0 {
		return nil, fmt.Errorf("sheet %q has no recognized columns", sheet)
	}

	summary := &reconciler.Summary{}
	for _, row := range rows[1:] {
		var rec provider.ChangeRecord
		for col, setter := range setters {
			if setter == nil || col >= len(row) {
				continue
			}
			setter(&rec, strings.TrimSpace(row[col]))
		}
		summary.Add(i.engine.Reconcile(&rec))
	}

	i.logger.Info("Spreadsheet import finished",
		"sheet", sheet,
		"rows", summary.Total,
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
	)
	return summary, nil
}
