package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Blue Widget", "Blue Widget"},
		{"<script>alert(1)</script>Widget", "alert(1)Widget"},
		{"&lt;b&gt;Bold&lt;/b&gt;", "Bold"},
		{`<img src=x onerror="steal()">Hat`, "Hat"},
		{"  spaced \n\t out  ", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeString(tt.input), tt.input)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "short", TruncateRunes("short", 10))
	assert.Equal(t, "any", TruncateRunes("any", 0))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.com"))
	assert.True(t, IsValidEmail("first.last+tag@shop.co.ke"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a@b"))
}

func TestIsCurrencyCode(t *testing.T) {
	assert.True(t, IsCurrencyCode("USD"))
	assert.False(t, IsCurrencyCode("usd"))
	assert.False(t, IsCurrencyCode("US"))
}

func TestFieldValidationErrors(t *testing.T) {
	var errs FieldValidationErrors
	errs.Add("amount", "must be positive")
	errs.Add("email", "is invalid")
	assert.Len(t, errs, 2)
	assert.Equal(t, "amount: must be positive; email: is invalid", errs.Error())
}
