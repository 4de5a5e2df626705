package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// ErrInvalidAmount is returned for amounts that are not non-negative decimals
var ErrInvalidAmount = errors.New("invalid amount")

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("decimal", validateDecimal)
	return v
}

// validateISO4217 accepts any currency code go-money knows
func validateISO4217(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	return code == strings.ToUpper(code) && money.GetCurrency(code) != nil
}

func validateDecimal(fl validator.FieldLevel) bool {
	_, err := decimal.NewFromString(fl.Field().String())
	return err == nil
}

// ValidationError lists failing fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", f, tag))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validate checks a request struct against its validate tags
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Namespace()] = fe.Tag()
	}
	return out
}

// ParseAmount parses a positive amount in the currency's minor-unit precision
func ParseAmount(amount, currency string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, amount, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	if c := money.GetCurrency(currency); c != nil {
		d = d.Round(int32(c.Fraction))
	}
	return d, nil
}
