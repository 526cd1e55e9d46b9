// Package forms validates the pre-chat payloads some personas require
// before their session can start.
package forms

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidationError reports a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CollectionsForm is the debtor intake for the collections persona.
type CollectionsForm struct {
	DebtorName         string  `json:"nombre_deudor"`
	DebtAmount         float64 `json:"monto_deuda"`
	DiscountPercentage float64 `json:"porcentaje_descuento"`
	LateFee            float64 `json:"multa_atraso"`
}

// Validate checks the intake fields. The first failing field is
// reported.
func (f *CollectionsForm) Validate() error {
	name := strings.TrimSpace(f.DebtorName)
	n := len([]rune(name))
	if n < 2 || n > 100 {
		return &ValidationError{Field: "nombre_deudor", Reason: "must be between 2 and 100 characters"}
	}
	if !validName(name) {
		return &ValidationError{Field: "nombre_deudor", Reason: "must contain only letters and spaces"}
	}
	if f.DebtAmount <= 0 {
		return &ValidationError{Field: "monto_deuda", Reason: "must be greater than zero"}
	}
	if f.DiscountPercentage < 0 || f.DiscountPercentage > 100 {
		return &ValidationError{Field: "porcentaje_descuento", Reason: "must be between 0 and 100"}
	}
	if f.LateFee < 0 {
		return &ValidationError{Field: "multa_atraso", Reason: "must not be negative"}
	}
	return nil
}

// ProductForm is the product selection for the portfolio persona.
type ProductForm struct {
	SelectedProduct string `json:"selected_product"`
}

func (f *ProductForm) Validate() error {
	if strings.TrimSpace(f.SelectedProduct) == "" {
		return &ValidationError{Field: "selected_product", Reason: "must not be empty"}
	}
	return nil
}

// validName accepts letters (including accented Spanish characters)
// and spaces.
func validName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}
