// Package ticket delivers tickets and planillas. The server either prints or
// stores the document itself and answers with a JSON status, or returns the
// PDF, which is written to the download directory and optionally opened.
package ticket

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/table"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Source is the slice of the remote client used here.
type Source interface {
	Print(ctx context.Context, kind model.Kind, id, copies int, date string) (*client.Document, error)
	SaveTicket(ctx context.Context, kind model.Kind, id int, date string) (*client.Document, error)
	PrintPlanilla(ctx context.Context, scope client.Scope) (*client.Document, error)
	ViewPlanilla(ctx context.Context, scope client.Scope) (*client.Document, error)
	DownloadPlanilla(ctx context.Context, scope client.Scope, f dto.Filters) (*client.Document, error)
	SavePlanilla(ctx context.Context) (*client.Document, error)
}

// Opener shows a delivered PDF to the operator.
type Opener func(ctx context.Context, path string) error

// CommandOpener runs cmd with the file path as its last argument, without
// waiting for it to exit. An empty cmd disables opening.
func CommandOpener(cmd string) Opener {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	return func(ctx context.Context, path string) error {
		args := append(fields[1:len(fields):len(fields)], path)
		c := exec.Command(fields[0], args...)
		if err := c.Start(); err != nil {
			return fmt.Errorf("ticket: abrir %s: %w", path, err)
		}
		go func() { _ = c.Wait() }()
		return nil
	}
}

type Level int

const (
	LevelSuccess Level = iota
	LevelInfo
)

// Result is what the operator is told after a delivery.
type Result struct {
	Level   Level
	Message string
	Path    string // local file, when a PDF was written
}

type Service interface {
	PrintTicket(ctx context.Context, row *table.Row, date string) (*Result, error)
	SaveTicket(ctx context.Context, row *table.Row, date string) (*Result, error)
	PrintPlanilla(ctx context.Context, scope client.Scope) (*Result, error)
	ViewPlanilla(ctx context.Context, scope client.Scope) (*Result, error)
	DownloadPlanilla(ctx context.Context, scope client.Scope, f dto.Filters) (*Result, error)
	SavePlanilla(ctx context.Context) (*Result, error)
}

type service struct {
	src  Source
	dir  string
	open Opener
	now  func() time.Time
}

func NewService(src Source, dir string, open Opener) Service {
	return &service{src: src, dir: dir, open: open, now: time.Now}
}

// ── Tickets ───────────────────────────────────────────────────────────────────

func (s *service) PrintTicket(ctx context.Context, row *table.Row, date string) (*Result, error) {
	id, ok := row.ID()
	if !ok {
		return nil, apierror.New(fmt.Sprintf("Por favor, guarde el registro de %s antes de intentar imprimir.", row.Kind()))
	}
	copies := row.Copies()
	doc, err := s.src.Print(ctx, row.Kind(), id, copies, date)
	if err != nil {
		return nil, fmt.Errorf("No se pudo imprimir el ticket: %w", err)
	}
	if !doc.IsPDF() {
		return status(doc.Status, "Ticket guardado en Pesadas e impreso."), nil
	}
	if doc.Copies > 0 {
		copies = doc.Copies
	}
	res, err := s.deliver(ctx, doc, fmt.Sprintf("ticket_%s_%d.pdf", row.Kind(), id), true)
	if err != nil {
		return nil, fmt.Errorf("No se pudo imprimir el ticket: %w", err)
	}
	if res.opened {
		res.Message = fmt.Sprintf("Ventana de impresión abierta. Imprima %d copia(s).", copies)
	} else {
		res.Level = LevelInfo
		res.Message = fmt.Sprintf("PDF descargado en %s (%s). Por favor imprima %d copia(s).", res.Path, res.size, copies)
	}
	return &res.Result, nil
}

func (s *service) SaveTicket(ctx context.Context, row *table.Row, date string) (*Result, error) {
	id, ok := row.ID()
	if !ok {
		return nil, apierror.New(fmt.Sprintf("Por favor, guarde el registro de %s antes de intentar guardar el PDF.", row.Kind()))
	}
	doc, err := s.src.SaveTicket(ctx, row.Kind(), id, date)
	if err != nil {
		return nil, fmt.Errorf("No se pudo guardar el ticket: %w", err)
	}
	if doc.IsPDF() {
		res, err := s.deliver(ctx, doc, fmt.Sprintf("ticket_%s_%d.pdf", row.Kind(), id), false)
		if err != nil {
			return nil, fmt.Errorf("No se pudo guardar el ticket: %w", err)
		}
		res.Message = fmt.Sprintf("Ticket guardado en %s (%s).", res.Path, res.size)
		return &res.Result, nil
	}
	return status(doc.Status, "Ticket guardado correctamente en el servidor."), nil
}

// ── Planillas ─────────────────────────────────────────────────────────────────

func (s *service) PrintPlanilla(ctx context.Context, scope client.Scope) (*Result, error) {
	doc, err := s.src.PrintPlanilla(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("No se pudo imprimir la planilla: %w", err)
	}
	if !doc.IsPDF() {
		return status(doc.Status, "Planilla enviada a imprimir."), nil
	}
	res, err := s.deliver(ctx, doc, planillaName(scope), true)
	if err != nil {
		return nil, fmt.Errorf("No se pudo imprimir la planilla: %w", err)
	}
	if res.opened {
		res.Message = "Ventana de impresión abierta. Presione Aceptar para imprimir."
	} else {
		res.Level = LevelInfo
		res.Message = fmt.Sprintf("Planilla descargada en %s (%s).", res.Path, res.size)
	}
	return &res.Result, nil
}

func (s *service) ViewPlanilla(ctx context.Context, scope client.Scope) (*Result, error) {
	doc, err := s.src.ViewPlanilla(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("Error al abrir el PDF: %w", err)
	}
	if !doc.IsPDF() {
		return status(doc.Status, "Operación completada."), nil
	}
	res, err := s.deliver(ctx, doc, planillaName(scope), true)
	if err != nil {
		return nil, fmt.Errorf("Error al abrir el PDF: %w", err)
	}
	res.Message = fmt.Sprintf("Planilla en %s (%s).", res.Path, res.size)
	return &res.Result, nil
}

func (s *service) DownloadPlanilla(ctx context.Context, scope client.Scope, f dto.Filters) (*Result, error) {
	doc, err := s.src.DownloadPlanilla(ctx, scope, f)
	if err != nil {
		return nil, fmt.Errorf("No se pudo descargar la planilla: %w", err)
	}
	if !doc.IsPDF() {
		return status(doc.Status, "Operación completada."), nil
	}
	name := doc.Filename
	if name == "" {
		name = planillaName(scope)
	}
	res, err := s.deliver(ctx, doc, name, false)
	if err != nil {
		return nil, fmt.Errorf("No se pudo descargar la planilla: %w", err)
	}
	res.Message = fmt.Sprintf("Planilla descargada en %s (%s).", res.Path, res.size)
	return &res.Result, nil
}

// SavePlanilla asks the server to store the combined planilla. When the
// server answers without a path (older servers), the conventional one is
// reported.
func (s *service) SavePlanilla(ctx context.Context) (*Result, error) {
	doc, err := s.src.SavePlanilla(ctx)
	if err != nil {
		return nil, fmt.Errorf("No se pudo guardar la planilla: %w", err)
	}
	path := ""
	if doc.Status != nil {
		path = doc.Status.Path
	}
	if path == "" {
		now := s.now()
		path = fmt.Sprintf("Planilla/planilla-%02d-%02d.pdf", now.Day(), int(now.Month()))
	}
	return &Result{Level: LevelSuccess, Message: "Planilla guardada en: " + path, Path: path}, nil
}

// ── Delivery ──────────────────────────────────────────────────────────────────

type delivered struct {
	Result
	size   string
	opened bool
}

// deliver writes a PDF body under the download directory and, when asked
// and an opener is configured, opens it. A body that is not a PDF is
// rejected before anything is written.
func (s *service) deliver(ctx context.Context, doc *client.Document, name string, open bool) (*delivered, error) {
	if mt := mimetype.Detect(doc.PDF); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("la respuesta no es un PDF (%s)", mt.String())
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ticket: crear %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, doc.PDF, 0o644); err != nil {
		return nil, fmt.Errorf("ticket: escribir %s: %w", path, err)
	}
	d := &delivered{Result: Result{Level: LevelSuccess, Path: path}, size: humanize.Bytes(uint64(len(doc.PDF)))}
	log.Info().Str("path", path).Int("bytes", len(doc.PDF)).Msg("ticket: pdf guardado")

	if open && s.open != nil {
		if err := s.open(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("ticket: no se pudo abrir el pdf")
		} else {
			d.opened = true
		}
	}
	return d, nil
}

func status(st *dto.PrintStatus, fallback string) *Result {
	if st == nil || st.Status != "success" {
		return &Result{Level: LevelInfo, Message: "Operación completada."}
	}
	msg := st.Message
	if msg == "" {
		msg = fallback
	}
	return &Result{Level: LevelSuccess, Message: msg, Path: st.Path}
}

func planillaName(scope client.Scope) string {
	return fmt.Sprintf("planilla_%s.pdf", scope)
}
