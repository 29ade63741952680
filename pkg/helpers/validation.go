package helpers

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var referenceNumberRegex = regexp.MustCompile(`^\d{5}$`)

// CustomValidator wraps go-playground validator with ledger-specific rules
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator creates a new custom validator
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("reference_number", validateReferenceNumber)
	v.RegisterValidation("iranian_mobile", validateIranianMobile)

	return &CustomValidator{validate: v}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

// ValidReferenceNumber reports whether s is exactly 5 ASCII digits.
func ValidReferenceNumber(s string) bool {
	return referenceNumberRegex.MatchString(s)
}

// validateReferenceNumber validates 5-digit transfer reference numbers
func validateReferenceNumber(fl validator.FieldLevel) bool {
	return ValidReferenceNumber(fl.Field().String())
}

// validateIranianMobile validates Iranian mobile numbers (09xxxxxxxxx)
func validateIranianMobile(fl validator.FieldLevel) bool {
	mobile := NormalizePersianNumbers(fl.Field().String())
	mobileRegex := regexp.MustCompile(`^09[0-9]{9}$`)
	return mobileRegex.MatchString(mobile)
}

// NormalizePersianNumbers converts Persian/Arabic digits to ASCII digits
func NormalizePersianNumbers(s string) string {
	replacer := strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
	return replacer.Replace(s)
}
