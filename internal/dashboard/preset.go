package dashboard

import (
	"fmt"
	"time"
)

// Preset is a named date range chip.
type Preset string

const (
	PresetToday     Preset = "today"
	PresetYesterday Preset = "yesterday"
	PresetLast7     Preset = "last7"
	PresetThisMonth Preset = "thisMonth"
	PresetLastMonth Preset = "lastMonth"
)

var Presets = []Preset{PresetToday, PresetYesterday, PresetLast7, PresetThisMonth, PresetLastMonth}

func (p Preset) Label() string {
	switch p {
	case PresetToday:
		return "Hoy"
	case PresetYesterday:
		return "Ayer"
	case PresetLast7:
		return "Últimos 7 días"
	case PresetThisMonth:
		return "Este mes"
	case PresetLastMonth:
		return "Mes anterior"
	}
	return string(p)
}

// Range returns the inclusive first and last day of the preset relative to
// now. "last7" includes today.
func (p Preset) Range(now time.Time) (start, end time.Time, err error) {
	y, m, d := now.Date()
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, now.Location()) }
	today := day(y, m, d)

	switch p {
	case PresetToday:
		return today, today, nil
	case PresetYesterday:
		yd := today.AddDate(0, 0, -1)
		return yd, yd, nil
	case PresetLast7:
		return today.AddDate(0, 0, -6), today, nil
	case PresetThisMonth:
		// day 0 of next month is the last day of this one
		return day(y, m, 1), day(y, m+1, 0), nil
	case PresetLastMonth:
		return day(y, m-1, 1), day(y, m, 0), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("dashboard: preset desconocido %q", p)
}
