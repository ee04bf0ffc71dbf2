// Package dashboard builds the read-only analytics view: KPIs, materials
// ranking, the five-day balance series and the latest moves.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/session"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MovesLimit is how many recent moves the dashboard lists.
const MovesLimit = 6

const dateLayout = "2006-01-02"

// ErrLoad is shown when the aggregate totals cannot be fetched.
var ErrLoad = errors.New("No se pudieron cargar los datos del dashboard.")

// Source is the part of the remote client the dashboard reads from.
type Source interface {
	DashboardData(ctx context.Context, start, end string) (*dto.DashboardData, error)
	Last5Days(ctx context.Context, end string) ([]dto.DailyBalance, error)
	LastMoves(ctx context.Context, start, end string, limit int) ([]dto.LastMove, error)
}

// Prefs persists section visibility. *session.Session satisfies it.
type Prefs interface {
	Visibility(ctx context.Context) session.Visibility
	SetVisibility(ctx context.Context, vis session.Visibility) error
}

// ── View ──────────────────────────────────────────────────────────────────────

type RankEntry struct {
	Mercaderia string
	Kilos      decimal.Decimal
	Text       string
}

type DayPoint struct {
	Label   string // dd/mm
	Balance decimal.Decimal
	Text    string
}

type Move struct {
	Fecha      string
	Quien      string
	Mercaderia string
	Neto       decimal.Decimal // signed: compras add, ventas subtract
	Text       string          // "+1.234 kg"
	Venta      bool
}

// View is everything the dashboard screen shows for one date range.
type View struct {
	Start, End string

	Compras decimal.Decimal
	Ventas  decimal.Decimal
	Balance decimal.Decimal
	KPIs    map[string]string // compras, ventas, balance, top

	Ranking []RankEntry
	Days    []DayPoint
	Moves   []Move

	Visibility session.Visibility
}

// ── Service ───────────────────────────────────────────────────────────────────

type Service interface {
	Load(ctx context.Context, start, end string) (*View, error)
	LoadPreset(ctx context.Context, p Preset) (*View, error)
	Toggle(ctx context.Context, section string) (session.Visibility, error)
	Reset(ctx context.Context) (session.Visibility, error)
}

type service struct {
	src   Source
	prefs Prefs
	now   func() time.Time
}

func NewService(src Source, prefs Prefs) Service {
	return &service{src: src, prefs: prefs, now: time.Now}
}

func (s *service) LoadPreset(ctx context.Context, p Preset) (*View, error) {
	start, end, err := p.Range(s.now())
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, start.Format(dateLayout), end.Format(dateLayout))
}

// Load fetches the three dashboard endpoints concurrently. Only the totals
// are required; a failing series or moves list leaves that section empty.
func (s *service) Load(ctx context.Context, start, end string) (*View, error) {
	if start == "" || end == "" {
		return nil, errors.New("dashboard: rango de fechas incompleto")
	}

	var (
		data  *dto.DashboardData
		days  []dto.DailyBalance
		moves []dto.LastMove
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.src.DashboardData(gctx, start, end)
		if err != nil {
			return fmt.Errorf("dashboard: totales: %w", err)
		}
		data = d
		return nil
	})
	g.Go(func() error {
		d, err := s.src.Last5Days(gctx, end)
		if err != nil {
			log.Warn().Err(err).Str("end", end).Msg("dashboard: balance de 5 días no disponible")
			return nil
		}
		days = d
		return nil
	})
	g.Go(func() error {
		m, err := s.src.LastMoves(gctx, start, end, MovesLimit)
		if err != nil {
			log.Warn().Err(err).Msg("dashboard: últimos movimientos no disponibles")
			return nil
		}
		moves = m
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("start", start).Str("end", end).Msg("dashboard: carga fallida")
		return nil, err
	}

	v := &View{
		Start:   start,
		End:     end,
		Compras: data.TotalKilosComprados,
		Ventas:  data.TotalKilosVendidos,
		Balance: balance(data),
	}
	v.Ranking = ranking(data.ComprasPorMaterial)
	v.KPIs = map[string]string{
		"compras": FormatKilos(v.Compras),
		"ventas":  FormatKilos(v.Ventas),
		"balance": FormatKilos(v.Balance),
		"top":     topText(v.Ranking),
	}
	v.Days = series(days)
	v.Moves = lastMoves(moves)
	if s.prefs != nil {
		v.Visibility = s.prefs.Visibility(ctx)
	} else {
		v.Visibility = session.DefaultVisibility()
	}
	return v, nil
}

// balance trusts the server figure and falls back to compras minus ventas
// when the server leaves it out.
func balance(d *dto.DashboardData) decimal.Decimal {
	if !d.BalanceNeto.IsZero() {
		return d.BalanceNeto
	}
	return d.TotalKilosComprados.Sub(d.TotalKilosVendidos)
}

func ranking(in []dto.MaterialTotal) []RankEntry {
	out := make([]RankEntry, 0, len(in))
	for _, m := range in {
		out = append(out, RankEntry{Mercaderia: m.Mercaderia, Kilos: m.TotalKilos, Text: FormatKilos(m.TotalKilos)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kilos.GreaterThan(out[j].Kilos) })
	return out
}

func topText(r []RankEntry) string {
	if len(r) == 0 {
		return "—"
	}
	return fmt.Sprintf("%s (%s kg)", r[0].Mercaderia, r[0].Text)
}

func series(in []dto.DailyBalance) []DayPoint {
	out := make([]DayPoint, 0, len(in))
	for _, d := range in {
		out = append(out, DayPoint{Label: ShortDate(d.Fecha), Balance: d.BalanceNeto, Text: FormatKilos(d.BalanceNeto)})
	}
	return out
}

func lastMoves(in []dto.LastMove) []Move {
	if len(in) > MovesLimit {
		in = in[:MovesLimit]
	}
	out := make([]Move, 0, len(in))
	for _, it := range in {
		venta := it.Tipo == "venta"
		neto := it.Neto.Abs()
		sign := "+"
		if venta {
			neto = neto.Neg()
			sign = "-"
		}
		out = append(out, Move{
			Fecha:      it.Fecha,
			Quien:      firstNonEmpty(it.Tercero, it.Proveedor, it.Cliente, "—"),
			Mercaderia: it.Mercaderia,
			Neto:       neto,
			Text:       sign + FormatKilos(it.Neto.Abs()) + " kg",
			Venta:      venta,
		})
	}
	return out
}

// ShortDate turns YYYY-MM-DD into dd/mm. Anything else is returned as is.
func ShortDate(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return s
	}
	return parts[2] + "/" + parts[1]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
