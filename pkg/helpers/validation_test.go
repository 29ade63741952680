package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidReferenceNumber(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"12345", true},
		{"00000", true},
		{"1234", false},
		{"123456", false},
		{"12a45", false},
		{"", false},
		{" 12345", false},
		{"۱۲۳۴۵", false}, // Persian digits must be normalized first
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidReferenceNumber(tt.input))
		})
	}
}

func TestNormalizePersianNumbers(t *testing.T) {
	assert.Equal(t, "12345", NormalizePersianNumbers("۱۲۳۴۵"))
	assert.Equal(t, "09123456789", NormalizePersianNumbers("۰۹۱۲۳۴۵۶۷۸۹"))
	assert.Equal(t, "12345", NormalizePersianNumbers("12345"))
	assert.True(t, ValidReferenceNumber(NormalizePersianNumbers("۱۲۳۴۵")))
}

func TestCustomValidator(t *testing.T) {
	v := NewCustomValidator()

	type form struct {
		Reference string `validate:"required,reference_number"`
		Mobile    string `validate:"omitempty,iranian_mobile"`
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(form{Reference: "12345", Mobile: "09121234567"}))
	})

	t.Run("BadReference", func(t *testing.T) {
		assert.Error(t, v.Validate(form{Reference: "999", Mobile: "09121234567"}))
	})

	t.Run("BadMobile", func(t *testing.T) {
		assert.Error(t, v.Validate(form{Reference: "12345", Mobile: "12345"}))
	})
}
