package web

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that understands decimal.Decimal fields,
// so numeric tags such as gte=0 apply to money values.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return v
}

func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}
