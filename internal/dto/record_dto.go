package dto

import "github.com/candelento/balanza/internal/model"

// ─── Filter / List ──────────────────────────────────────────────────────────

// Filters are the query parameters of GET /{kind}.
// Date selects a single day; StartDate/EndDate select a range
// (served by /filter_section_dato).
type Filters struct {
	Search    string
	Date      string // YYYY-MM-DD; empty = today on the server
	StartDate string
	EndDate   string
}

// IsRange reports whether the filters ask for a date range.
func (f Filters) IsRange() bool {
	return f.StartDate != "" && f.EndDate != ""
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// Draft is what the operator typed into a row, before parsing. Numeric fields
// stay as text so validation can reject "12a" without a round trip.
type Draft struct {
	Kind          model.Kind
	Party         string `validate:"required"`
	Mercaderia    string
	Bruto         string `validate:"omitempty,numeric_text,non_negative"`
	Tara          string `validate:"omitempty,numeric_text,non_negative"`
	Merma         string `validate:"omitempty,numeric_text,non_negative"`
	Transport     string
	Patente       string
	Observaciones string
	Incoterm      string `validate:"omitempty,oneof=CIF FOB"`
	Remito        string // unparseable values are sent as null
}

// CompraPayload is the body of POST /compras and PUT /compras/{id}.
type CompraPayload struct {
	Proveedor     string   `json:"proveedor"`
	Bruto         *float64 `json:"bruto"`
	Mercaderia    string   `json:"mercaderia"`
	Tara          *float64 `json:"tara"`
	Merma         *float64 `json:"merma"`
	Chofer        string   `json:"chofer"`
	Patente       string   `json:"patente"`
	Observaciones string   `json:"observaciones"`
}

// VentaPayload is the body of POST /ventas and PUT /ventas/{id}.
type VentaPayload struct {
	Cliente       string          `json:"cliente"`
	Bruto         *float64        `json:"bruto"`
	Mercaderia    string          `json:"mercaderia"`
	Tara          *float64        `json:"tara"`
	Merma         *float64        `json:"merma"`
	Transporte    string          `json:"transporte"`
	Patente       string          `json:"patente"`
	Incoterm      *model.Incoterm `json:"incoterm"`
	Remito        *int            `json:"remito"`
	Observaciones string          `json:"observaciones"`
}

// ─── Push ────────────────────────────────────────────────────────────────────

// PushMessage is a snapshot delivered over the WebSocket channel.
type PushMessage struct {
	Type    string         `json:"type"` // compra | venta
	Payload []model.Record `json:"payload"`
}
