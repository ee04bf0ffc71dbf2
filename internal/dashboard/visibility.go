package dashboard

import (
	"context"
	"fmt"

	"github.com/candelento/balanza/internal/session"
)

// Section names, as stored in the visibility preference.
const (
	SectionEntries   = "entries"
	SectionDays5     = "days5"
	SectionRanking   = "ranking"
	SectionLastMoves = "lastmoves"
)

var Sections = []string{SectionEntries, SectionDays5, SectionRanking, SectionLastMoves}

// Toggle flips one section and persists the result.
func (s *service) Toggle(ctx context.Context, section string) (session.Visibility, error) {
	vis := session.DefaultVisibility()
	if s.prefs != nil {
		vis = s.prefs.Visibility(ctx)
	}
	switch section {
	case SectionEntries:
		vis.Entries = !vis.Entries
	case SectionDays5:
		vis.Days5 = !vis.Days5
	case SectionRanking:
		vis.Ranking = !vis.Ranking
	case SectionLastMoves:
		vis.LastMoves = !vis.LastMoves
	default:
		return vis, fmt.Errorf("dashboard: sección desconocida %q", section)
	}
	return vis, s.save(ctx, vis)
}

// Reset shows every section again.
func (s *service) Reset(ctx context.Context) (session.Visibility, error) {
	vis := session.DefaultVisibility()
	return vis, s.save(ctx, vis)
}

func (s *service) save(ctx context.Context, vis session.Visibility) error {
	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.SetVisibility(ctx, vis); err != nil {
		return fmt.Errorf("dashboard: guardar visibilidad: %w", err)
	}
	return nil
}

// Visible reports whether a section is shown under vis.
func Visible(vis session.Visibility, section string) bool {
	switch section {
	case SectionEntries:
		return vis.Entries
	case SectionDays5:
		return vis.Days5
	case SectionRanking:
		return vis.Ranking
	case SectionLastMoves:
		return vis.LastMoves
	}
	return false
}
