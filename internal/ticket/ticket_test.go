package ticket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type stubSource struct {
	doc        *client.Document
	err        error
	lastCopies int
	lastDate   string
	calls      int
}

func (s *stubSource) Print(_ context.Context, _ model.Kind, _ int, copies int, date string) (*client.Document, error) {
	s.calls++
	s.lastCopies, s.lastDate = copies, date
	return s.doc, s.err
}

func (s *stubSource) SaveTicket(_ context.Context, _ model.Kind, _ int, date string) (*client.Document, error) {
	s.calls++
	s.lastDate = date
	return s.doc, s.err
}

func (s *stubSource) PrintPlanilla(context.Context, client.Scope) (*client.Document, error) {
	s.calls++
	return s.doc, s.err
}

func (s *stubSource) ViewPlanilla(context.Context, client.Scope) (*client.Document, error) {
	s.calls++
	return s.doc, s.err
}

func (s *stubSource) DownloadPlanilla(context.Context, client.Scope, dto.Filters) (*client.Document, error) {
	s.calls++
	return s.doc, s.err
}

func (s *stubSource) SavePlanilla(context.Context) (*client.Document, error) {
	s.calls++
	return s.doc, s.err
}

func savedRow(kind model.Kind, id int) *table.Row {
	return table.RowFromRecord(kind, model.Record{ID: model.Ptr(id), Proveedor: "ACME", Cliente: "ACME"})
}

func TestPrintUnsavedRowIsRefused(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, t.TempDir(), nil)

	_, err := svc.PrintTicket(context.Background(), table.NewRow(model.Compras), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guarde el registro de compras antes")
	assert.Zero(t, src.calls)

	_, err = svc.SaveTicket(context.Background(), table.NewRow(model.Ventas), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "antes de intentar guardar el PDF")
}

func TestPrintWritesPDFAndOpensIt(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{doc: &client.Document{PDF: pdfBody, Copies: 3}}
	var opened string
	svc := NewService(src, dir, func(_ context.Context, path string) error {
		opened = path
		return nil
	})
	row := savedRow(model.Ventas, 12)
	row.SetCopies(1)

	res, err := svc.PrintTicket(context.Background(), row, "2026-10-14")
	require.NoError(t, err)

	want := filepath.Join(dir, "ticket_ventas_12.pdf")
	assert.Equal(t, want, res.Path)
	assert.Equal(t, want, opened)
	assert.Equal(t, "Ventana de impresión abierta. Imprima 3 copia(s).", res.Message)
	assert.Equal(t, 1, src.lastCopies)
	assert.Equal(t, "2026-10-14", src.lastDate)

	body, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, body)
}

func TestPrintWithoutOpenerReportsDownload(t *testing.T) {
	src := &stubSource{doc: &client.Document{PDF: pdfBody}}
	svc := NewService(src, t.TempDir(), nil)

	res, err := svc.PrintTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, res.Level)
	assert.Contains(t, res.Message, "PDF descargado en")
	assert.Contains(t, res.Message, "Por favor imprima 2 copia(s).")
}

func TestOpenerFailureStillDelivers(t *testing.T) {
	src := &stubSource{doc: &client.Document{PDF: pdfBody}}
	svc := NewService(src, t.TempDir(), func(context.Context, string) error { return errors.New("no display") })

	res, err := svc.PrintTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
	assert.Contains(t, res.Message, "PDF descargado")
}

func TestNonPDFBodyIsRejected(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{doc: &client.Document{PDF: []byte("<html>login</html>")}}
	svc := NewService(src, dir, nil)

	_, err := svc.PrintTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no es un PDF")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestJSONStatusSurfacesMessage(t *testing.T) {
	src := &stubSource{doc: &client.Document{Status: &dto.PrintStatus{Status: "success", Message: "Impreso en EPSON"}}}
	svc := NewService(src, t.TempDir(), nil)

	res, err := svc.PrintTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.NoError(t, err)
	assert.Equal(t, "Impreso en EPSON", res.Message)

	src.doc = &client.Document{Status: &dto.PrintStatus{Status: "success"}}
	res, err = svc.SaveTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.NoError(t, err)
	assert.Equal(t, "Ticket guardado correctamente en el servidor.", res.Message)

	src.doc = &client.Document{Status: &dto.PrintStatus{Status: "queued"}}
	res, err = svc.PrintPlanilla(context.Background(), client.ScopeTodo)
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, res.Level)
	assert.Equal(t, "Operación completada.", res.Message)
}

func TestServerErrorIsWrapped(t *testing.T) {
	src := &stubSource{err: apierror.FromResponse(404, "Registro no encontrado")}
	svc := NewService(src, t.TempDir(), nil)

	_, err := svc.PrintTicket(context.Background(), savedRow(model.Compras, 4), "")
	require.Error(t, err)
	assert.Equal(t, "No se pudo imprimir el ticket: Registro no encontrado", err.Error())
}

func TestDownloadPlanillaUsesServerFilename(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{doc: &client.Document{PDF: pdfBody, Filename: "planilla_compras_2026-10-15.pdf"}}
	svc := NewService(src, dir, nil)

	res, err := svc.DownloadPlanilla(context.Background(), client.ScopeCompras, dto.Filters{Date: "2026-10-15"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "planilla_compras_2026-10-15.pdf"), res.Path)

	src.doc = &client.Document{PDF: pdfBody}
	res, err = svc.ViewPlanilla(context.Background(), client.ScopeVentas)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "planilla_ventas.pdf"), res.Path)
}

func TestSavePlanillaPath(t *testing.T) {
	src := &stubSource{doc: &client.Document{Status: &dto.PrintStatus{Status: "success", Path: `Planilla\planilla-15-10.pdf`}}}
	svc := &service{src: src, dir: t.TempDir(), now: time.Now}

	res, err := svc.SavePlanilla(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `Planilla guardada en: Planilla\planilla-15-10.pdf`, res.Message)

	src.doc = &client.Document{Status: &dto.PrintStatus{Status: "success", Message: "Planilla guardada"}}
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	res, err = svc.SavePlanilla(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Planilla guardada en: Planilla/planilla-05-03.pdf", res.Message)
}
