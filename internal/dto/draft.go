package dto

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Weights arrive as text from the cells; these tags check them without
	// converting the whole draft first.
	_ = validate.RegisterValidation("numeric_text", func(fl validator.FieldLevel) bool {
		_, err := parseNumber(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("non_negative", func(fl validator.FieldLevel) bool {
		v, err := parseNumber(fl.Field().String())
		return err != nil || v >= 0
	})
}

var fieldLabels = map[string]string{
	"Bruto":    "Bruto",
	"Tara":     "Tara",
	"Merma":    "Merma",
	"Incoterm": "Incoterm",
}

var fieldNames = map[string]string{
	"Bruto":    "bruto",
	"Tara":     "tara",
	"Merma":    "merma",
	"Incoterm": "incoterm",
}

// Validate checks a draft locally. The returned *apierror.ValidationError is
// keyed by the cell name so the caller can highlight it.
func (d Draft) Validate() error {
	d.Party = strings.TrimSpace(d.Party)
	d.Bruto = strings.TrimSpace(d.Bruto)
	d.Tara = strings.TrimSpace(d.Tara)
	d.Merma = strings.TrimSpace(d.Merma)
	d.Incoterm = strings.ToUpper(strings.TrimSpace(d.Incoterm))
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string)
	for _, fe := range verrs {
		switch fe.Field() {
		case "Party":
			fields[d.Kind.PartyField()] = fmt.Sprintf("El campo '%s' es obligatorio.", d.Kind.PartyLabel())
		default:
			name, label := fieldNames[fe.Field()], fieldLabels[fe.Field()]
			switch fe.Tag() {
			case "non_negative":
				fields[name] = fmt.Sprintf("El valor de '%s' no puede ser negativo.", label)
			case "oneof":
				fields[name] = "Incoterm debe ser CIF o FOB."
			default:
				fields[name] = fmt.Sprintf("El valor de '%s' no es un número válido.", label)
			}
		}
	}
	return apierror.NewValidation(fields)
}

// Payload converts a validated draft into the request body for its kind.
func (d Draft) Payload() (any, error) {
	bruto, err := optionalNumber(d.Bruto)
	if err != nil {
		return nil, err
	}
	tara, err := optionalNumber(d.Tara)
	if err != nil {
		return nil, err
	}
	merma, err := optionalNumber(d.Merma)
	if err != nil {
		return nil, err
	}

	if d.Kind == model.Ventas {
		var inc *model.Incoterm
		switch strings.ToUpper(strings.TrimSpace(d.Incoterm)) {
		case string(model.CIF):
			inc = model.Ptr(model.CIF)
		case string(model.FOB):
			inc = model.Ptr(model.FOB)
		}
		var remito *int
		if n, err := strconv.Atoi(strings.TrimSpace(d.Remito)); err == nil && n >= 0 {
			remito = &n
		}
		return VentaPayload{
			Cliente:       strings.TrimSpace(d.Party),
			Bruto:         bruto,
			Mercaderia:    d.Mercaderia,
			Tara:          tara,
			Merma:         merma,
			Transporte:    d.Transport,
			Patente:       d.Patente,
			Incoterm:      inc,
			Remito:        remito,
			Observaciones: d.Observaciones,
		}, nil
	}
	return CompraPayload{
		Proveedor:     strings.TrimSpace(d.Party),
		Bruto:         bruto,
		Mercaderia:    d.Mercaderia,
		Tara:          tara,
		Merma:         merma,
		Chofer:        d.Transport,
		Patente:       d.Patente,
		Observaciones: d.Observaciones,
	}, nil
}

func optionalNumber(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseNumber accepts finite decimals only; ParseFloat also takes "Inf" and
// "NaN", which the API cannot encode.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("número no finito %q", s)
	}
	return v, nil
}
