package table

import "github.com/candelento/balanza/internal/model"

// Cell names. Editable cells carry the same name as the record field.
const (
	FieldID            = "id"
	FieldFecha         = "fecha"
	FieldProveedor     = "proveedor"
	FieldCliente       = "cliente"
	FieldMercaderia    = "mercaderia"
	FieldBruto         = "bruto"
	FieldTara          = "tara"
	FieldMerma         = "merma"
	FieldNeto          = "neto"
	FieldChofer        = "chofer"
	FieldTransporte    = "transporte"
	FieldPatente       = "patente"
	FieldIncoterm      = "incoterm"
	FieldHoraIngreso   = "hora_ingreso"
	FieldHoraSalida    = "hora_salida"
	FieldRemito        = "remito"
	FieldObservaciones = "observaciones"
)

// IsWeight reports whether field is one of the three weights that feed neto.
func IsWeight(field string) bool {
	return field == FieldBruto || field == FieldTara || field == FieldMerma
}

var readOnly = map[string]bool{
	FieldID:          true,
	FieldFecha:       true,
	FieldNeto:        true,
	FieldHoraIngreso: true,
	FieldHoraSalida:  true,
}

// IsReadOnly reports whether the operator can type into field.
func IsReadOnly(field string) bool { return readOnly[field] }

// Column describes one visible column.
type Column struct {
	Field    string
	Title    string
	Width    int
	Required bool
}

func (c Column) ReadOnly() bool { return IsReadOnly(c.Field) }

var comprasColumns = []Column{
	{FieldID, "ID", 5, false},
	{FieldFecha, "Fecha", 10, false},
	{FieldProveedor, "Proveedor", 16, true},
	{FieldMercaderia, "Mercadería", 14, false},
	{FieldBruto, "Bruto", 8, false},
	{FieldTara, "Tara", 8, false},
	{FieldMerma, "Merma", 7, false},
	{FieldNeto, "Neto", 9, false},
	{FieldChofer, "Chofer", 12, false},
	{FieldPatente, "Patente", 9, false},
	{FieldHoraIngreso, "Ingreso", 8, false},
	{FieldHoraSalida, "Salida", 8, false},
	{FieldObservaciones, "Observaciones", 18, false},
}

var ventasColumns = []Column{
	{FieldID, "ID", 5, false},
	{FieldFecha, "Fecha", 10, false},
	{FieldCliente, "Cliente", 16, true},
	{FieldMercaderia, "Mercadería", 14, false},
	{FieldBruto, "Bruto", 8, false},
	{FieldTara, "Tara", 8, false},
	{FieldMerma, "Merma", 7, false},
	{FieldNeto, "Neto", 9, false},
	{FieldTransporte, "Transporte", 12, false},
	{FieldPatente, "Patente", 9, false},
	{FieldIncoterm, "Incoterm", 8, false},
	{FieldHoraIngreso, "Ingreso", 8, false},
	{FieldHoraSalida, "Salida", 8, false},
	{FieldRemito, "Remito", 7, false},
	{FieldObservaciones, "Observaciones", 18, false},
}

// Columns returns the display columns of kind. The slice must not be modified.
func Columns(k model.Kind) []Column {
	if k == model.Ventas {
		return ventasColumns
	}
	return comprasColumns
}
