package model

import (
	"fmt"
	"strings"
)

// Kind tags a record and every row built from it. A row keeps one Kind for
// its whole lifetime.
type Kind string

const (
	Compras Kind = "compras"
	Ventas  Kind = "ventas"
)

// Kinds lists the tabs in display order.
var Kinds = []Kind{Compras, Ventas}

// ParseKind accepts both the plural path form and the singular push tag.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compras", "compra":
		return Compras, nil
	case "ventas", "venta":
		return Ventas, nil
	}
	return "", fmt.Errorf("tipo de registro desconocido: %q", s)
}

// Singular is the tag used by push messages ("compra" | "venta").
func (k Kind) Singular() string {
	return strings.TrimSuffix(string(k), "s")
}

// PartyField is the required counterpart field for the kind.
func (k Kind) PartyField() string {
	if k == Ventas {
		return "cliente"
	}
	return "proveedor"
}

// PartyLabel is the human label of PartyField.
func (k Kind) PartyLabel() string {
	if k == Ventas {
		return "Cliente"
	}
	return "Proveedor"
}

// TransportField is chofer for compras, transporte for ventas.
func (k Kind) TransportField() string {
	if k == Ventas {
		return "transporte"
	}
	return "chofer"
}

// Incoterm is the shipping term of a venta. Nil pointer means none.
type Incoterm string

const (
	CIF Incoterm = "CIF"
	FOB Incoterm = "FOB"
)

// Record is one weighing, compra or venta. Pointers distinguish "absent"
// from zero: a record with nil ID has never been saved.
type Record struct {
	ID            *int      `json:"id,omitempty"`
	Fecha         string    `json:"fecha,omitempty"`
	Proveedor     string    `json:"proveedor,omitempty"`
	Cliente       string    `json:"cliente,omitempty"`
	Mercaderia    string    `json:"mercaderia,omitempty"`
	Bruto         *float64  `json:"bruto"`
	Tara          *float64  `json:"tara"`
	Merma         *float64  `json:"merma"`
	Neto          *float64  `json:"neto,omitempty"`
	PrecioKg      *float64  `json:"precio_kg,omitempty"`
	Importe       *float64  `json:"importe,omitempty"`
	Chofer        string    `json:"chofer,omitempty"`
	Transporte    string    `json:"transporte,omitempty"`
	Patente       string    `json:"patente,omitempty"`
	HoraIngreso   *string   `json:"hora_ingreso,omitempty"`
	HoraSalida    *string   `json:"hora_salida,omitempty"`
	Observaciones string    `json:"observaciones,omitempty"`
	Incoterm      *Incoterm `json:"incoterm,omitempty"`
	Remito        *int      `json:"remito,omitempty"`
}

// Party returns proveedor or cliente depending on kind.
func (r *Record) Party(k Kind) string {
	if k == Ventas {
		return r.Cliente
	}
	return r.Proveedor
}

// Transport returns chofer or transporte depending on kind.
func (r *Record) Transport(k Kind) string {
	if k == Ventas {
		return r.Transporte
	}
	return r.Chofer
}

// IDValue returns the id and whether the record is persisted.
func (r *Record) IDValue() (int, bool) {
	if r == nil || r.ID == nil {
		return 0, false
	}
	return *r.ID, true
}

// Ptr is a small helper for building optional fields in literals and tests.
func Ptr[T any](v T) *T { return &v }
