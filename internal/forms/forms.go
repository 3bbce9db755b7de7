// Package forms validates raw user input for the transaction and currency
// conversion forms. Validators are pure: they return field-level messages
// instead of errors, and never touch storage.
package forms

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionForm is the raw input of the add/update transaction screens.
type TransactionForm struct {
	Amount      string
	Description string
	CategoryID  string
	Date        string
}

// TransactionErrors holds one message per invalid field; empty strings mean
// the field passed.
type TransactionErrors struct {
	Amount      string
	Description string
	Category    string
	Date        string
}

func (e TransactionErrors) HasErrors() bool {
	return e.Amount != "" || e.Description != "" || e.Category != "" || e.Date != ""
}

// ConversionForm is the raw input of the currency converter screen.
type ConversionForm struct {
	ProviderID string
	FromCode   string
	ToCode     string
	Amount     string
}

type ConversionErrors struct {
	Provider string
	FromCode string
	ToCode   string
	Amount   string
}

func (e ConversionErrors) HasErrors() bool {
	return e.Provider != "" || e.FromCode != "" || e.ToCode != "" || e.Amount != ""
}

// ValidateAmount checks that amount parses as a positive decimal.
func ValidateAmount(amount string) string {
	if strings.TrimSpace(amount) == "" {
		return "Amount is required"
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "Invalid amount"
	}
	if d.Sign() <= 0 {
		return "Amount must be greater than zero"
	}
	return ""
}

func ValidateDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return "Description is required"
	}
	if len(description) < 3 {
		return "Description must be at least 3 characters"
	}
	return ""
}

func ValidateCategory(categoryID string) string {
	if strings.TrimSpace(categoryID) == "" {
		return "Category is required"
	}
	return ""
}

func ValidateDate(formattedDate string) string {
	if strings.TrimSpace(formattedDate) == "" {
		return "Date is required"
	}
	return ""
}

func ValidateProvider(providerID string) string {
	if strings.TrimSpace(providerID) == "" {
		return "Currency provider is required"
	}
	return ""
}

func ValidateCurrencyCode(code, label string) string {
	if strings.TrimSpace(code) == "" {
		return label + " is required"
	}
	return ""
}

// Validate runs every field validator and reports the combined error bag.
func (f TransactionForm) Validate() TransactionErrors {
	return TransactionErrors{
		Amount:      ValidateAmount(f.Amount),
		Description: ValidateDescription(f.Description),
		Category:    ValidateCategory(f.CategoryID),
		Date:        ValidateDate(f.Date),
	}
}

func (f ConversionForm) Validate() ConversionErrors {
	return ConversionErrors{
		Provider: ValidateProvider(f.ProviderID),
		FromCode: ValidateCurrencyCode(f.FromCode, "From code"),
		ToCode:   ValidateCurrencyCode(f.ToCode, "To code"),
		Amount:   ValidateAmount(f.Amount),
	}
}
