package dto

import (
	"errors"
	"testing"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonFiniteWeights(t *testing.T) {
	for _, v := range []string{"Inf", "+Inf", "-inf", "infinity", "NaN", "1e400"} {
		d := Draft{Kind: model.Compras, Party: "ACME", Bruto: v}
		err := d.Validate()
		require.Error(t, err, v)

		var ve *apierror.ValidationError
		require.True(t, errors.As(err, &ve), v)
		assert.Equal(t, "El valor de 'Bruto' no es un número válido.", ve.Fields["bruto"], v)

		_, err = d.Payload()
		assert.Error(t, err, v)
	}
}

func TestValidateAcceptsDecimals(t *testing.T) {
	d := Draft{Kind: model.Compras, Party: " ACME ", Bruto: "500.5", Tara: " 50 ", Merma: ""}
	require.NoError(t, d.Validate())

	p, err := d.Payload()
	require.NoError(t, err)
	c := p.(CompraPayload)
	assert.Equal(t, "ACME", c.Proveedor)
	require.NotNil(t, c.Bruto)
	assert.Equal(t, 500.5, *c.Bruto)
	assert.Equal(t, 50.0, *c.Tara)
	assert.Nil(t, c.Merma)
}

func TestValidateNegativeWeight(t *testing.T) {
	d := Draft{Kind: model.Ventas, Party: "Cliente", Tara: "-1"}
	var ve *apierror.ValidationError
	require.True(t, errors.As(d.Validate(), &ve))
	assert.Equal(t, "El valor de 'Tara' no puede ser negativo.", ve.Fields["tara"])
}
