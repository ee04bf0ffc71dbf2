// Package export writes the visible records to the daily planilla workbook,
// one sheet per day, in the column layout the office spreadsheets use.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/candelento/balanza/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Headers of every daily sheet, in column order.
var Headers = []string{
	"Registro ID", "Tipo Operación", "Contraparte", "Producto",
	"Peso Bruto (kg)", "Peso Tara (kg)", "Merma (kg)", "Peso Neto (kg)",
	"Precio x Kg", "Importe", "Chofer/Transporte", "Patente", "Incoterm",
	"Fecha Operacion", "Hora Ingreso", "Hora Salida", "Remito", "Observaciones",
}

var widths = []float64{12, 15, 25, 25, 18, 18, 12, 18, 15, 18, 18, 15, 10, 15, 15, 15, 14, 30}

// Tipo is the "Tipo Operación" label of a kind.
func Tipo(k model.Kind) string {
	if k == model.Ventas {
		return "Venta"
	}
	return "Compra"
}

// Row converts a record into sheet cells. Missing numbers stay empty.
func Row(k model.Kind, r model.Record) []any {
	id := any(nil)
	if v, ok := r.IDValue(); ok {
		id = v
	}
	inc := ""
	if r.Incoterm != nil {
		inc = string(*r.Incoterm)
	}
	remito := any(nil)
	if r.Remito != nil {
		remito = *r.Remito
	}
	return []any{
		id, Tipo(k), r.Party(k), r.Mercaderia,
		num(r.Bruto), num(r.Tara), num(r.Merma), num(r.Neto),
		num(r.PrecioKg), num(r.Importe), r.Transport(k), r.Patente, inc,
		r.Fecha, str(r.HoraIngreso), str(r.HoraSalida), remito, r.Observaciones,
	}
}

func num(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// WriteDay replaces the sheet named date (YYYY-MM-DD) in the workbook at
// path with the given records, compras first, each kind ordered by id. The
// workbook is created when missing; other days are left alone.
func WriteDay(path, date string, records map[model.Kind][]model.Record) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(date); idx >= 0 {
		rows, err := f.GetRows(date)
		if err != nil {
			return fmt.Errorf("export: leer hoja %s: %w", date, err)
		}
		for i := len(rows); i >= 1; i-- {
			if err := f.RemoveRow(date, i); err != nil {
				return fmt.Errorf("export: limpiar hoja %s: %w", date, err)
			}
		}
	} else if _, err := f.NewSheet(date); err != nil {
		return fmt.Errorf("export: crear hoja %s: %w", date, err)
	}
	if err := header(f, date); err != nil {
		return err
	}

	line := 2
	for _, k := range model.Kinds {
		recs := append([]model.Record(nil), records[k]...)
		sort.SliceStable(recs, func(i, j int) bool {
			a, _ := recs[i].IDValue()
			b, _ := recs[j].IDValue()
			return a < b
		})
		for _, r := range recs {
			cell, _ := excelize.CoordinatesToCellName(1, line)
			row := Row(k, r)
			if err := f.SetSheetRow(date, cell, &row); err != nil {
				return fmt.Errorf("export: fila %d: %w", line, err)
			}
			line++
		}
	}

	// excelize starts new files with "Sheet1"; drop it once a day exists.
	if date != "Sheet1" {
		if i, _ := f.GetSheetIndex("Sheet1"); i >= 0 {
			_ = f.DeleteSheet("Sheet1")
		}
	}
	if idx, err := f.GetSheetIndex(date); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: guardar %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("sheet", date).Int("rows", line-2).Msg("export: planilla escrita")
	return nil
}

func open(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: abrir %s: %w", path, err)
	}
	return f, nil
}

func header(f *excelize.File, sheet string) error {
	hdr := make([]any, len(Headers))
	for i, h := range Headers {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("export: encabezado: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F81BD"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: estilo: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("export: estilo: %w", err)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("export: ancho %s: %w", col, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// ReadDay returns the data rows of one day's sheet, headers excluded.
func ReadDay(path, date string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: abrir %s: %w", path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(date)
	if err != nil {
		return nil, fmt.Errorf("export: leer hoja %s: %w", date, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}
