package table

import "github.com/candelento/balanza/internal/model"

// Direction of a Ctrl+arrow move.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// EditableFields lists the columns of kind the cursor can land on.
func EditableFields(k model.Kind) []string {
	var out []string
	for _, c := range Columns(k) {
		if !c.ReadOnly() {
			out = append(out, c.Field)
		}
	}
	return out
}

// Neighbor returns the cell reached from (row, field) moving in d. Left and
// right walk the editable columns and wrap to the previous/next row; up and
// down keep the column. At the edges the position does not change.
func (t *Table) Neighbor(row *Row, field string, d Direction) (*Row, string) {
	rows := t.Rows()
	fields := EditableFields(t.kind)
	if len(rows) == 0 || len(fields) == 0 {
		return row, field
	}
	ri := indexOf(rows, row)
	if ri < 0 {
		return rows[0], fields[0]
	}
	fi := 0
	for i, f := range fields {
		if f == field {
			fi = i
			break
		}
	}

	switch d {
	case Up:
		if ri > 0 {
			ri--
		}
	case Down:
		if ri < len(rows)-1 {
			ri++
		}
	case Left:
		switch {
		case fi > 0:
			fi--
		case ri > 0:
			ri--
			fi = len(fields) - 1
		}
	case Right:
		switch {
		case fi < len(fields)-1:
			fi++
		case ri < len(rows)-1:
			ri++
			fi = 0
		}
	}
	return rows[ri], fields[fi]
}

func indexOf(rows []*Row, row *Row) int {
	for i, r := range rows {
		if r == row {
			return i
		}
	}
	return -1
}
