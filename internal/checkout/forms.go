package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

// ShippingForm is the address step of checkout
type ShippingForm struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"required,min=10,max=20"`
	Address   string `json:"address" validate:"required,min=5,max=200"`
	City      string `json:"city" validate:"required,min=2,max=100"`
	State     string `json:"state" validate:"required,min=2,max=100"`
	ZipCode   string `json:"zipCode" validate:"required,min=5,max=10"`
	Country   string `json:"country" validate:"required,min=2,max=100"`
}

func (f ShippingForm) trimmed() ShippingForm {
	return ShippingForm{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		City:      strings.TrimSpace(f.City),
		State:     strings.TrimSpace(f.State),
		ZipCode:   strings.TrimSpace(f.ZipCode),
		Country:   strings.TrimSpace(f.Country),
	}
}

// PaymentForm is the card step of checkout. The card is never charged.
type PaymentForm struct {
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	CardName   string `json:"cardName" validate:"required,min=2,max=100"`
	Expiry     string `json:"expiry" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,min=3,max=4"`
}

func (f PaymentForm) trimmed() PaymentForm {
	return PaymentForm{
		CardNumber: strings.TrimSpace(f.CardNumber),
		CardName:   strings.TrimSpace(f.CardName),
		Expiry:     strings.TrimSpace(f.Expiry),
		CVV:        strings.TrimSpace(f.CVV),
	}
}

// FieldError is a single failed form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every failed field of a submitted form
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	fields := make([]string, len(e))
	for i, fe := range e {
		fields[i] = fe.Field
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// Has reports whether the named field failed
func (e ValidationErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var messages = map[string]string{
	"firstName.required":    "First name is required",
	"lastName.required":     "Last name is required",
	"email.required":        "Invalid email address",
	"email.email":           "Invalid email address",
	"phone.required":        "Valid phone number required",
	"phone.min":             "Valid phone number required",
	"address.required":      "Address is required",
	"address.min":           "Address is required",
	"city.required":         "City is required",
	"city.min":              "City is required",
	"state.required":        "State is required",
	"state.min":             "State is required",
	"zipCode.required":      "Valid ZIP code required",
	"zipCode.min":           "Valid ZIP code required",
	"country.required":      "Country is required",
	"country.min":           "Country is required",
	"cardNumber.required":   "Valid card number required",
	"cardNumber.cardnumber": "Valid card number required",
	"cardName.required":     "Cardholder name is required",
	"cardName.min":          "Cardholder name is required",
	"expiry.required":       "Format: MM/YY",
	"expiry.expiry":         "Format: MM/YY",
	"cvv.required":          "CVV is required",
	"cvv.min":               "CVV is required",
	"cvv.max":               "Invalid CVV",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		digits := len(CardDigits(fl.Field().String()))
		return digits >= 16 && digits <= 19
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

// validateForm runs struct validation and converts failures to field errors
func validateForm(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		result = append(result, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return result
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if fe.Tag() == "max" {
		return "Max " + fe.Param() + " characters"
	}
	return "Invalid value"
}

// CardDigits strips everything but digits from a card number
func CardDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber groups the digits of a card number in fours for display.
// Input without digits is returned unchanged.
func FormatCardNumber(value string) string {
	digits := CardDigits(value)
	if digits == "" {
		return value
	}

	groups := make([]string, 0, len(digits)/4+1)
	for i := 0; i < len(digits); i += 4 {
		groups = append(groups, digits[i:min(i+4, len(digits))])
	}
	return strings.Join(groups, " ")
}
