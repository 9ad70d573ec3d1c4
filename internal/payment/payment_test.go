package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	got := BuildURL("https://loc.example.com", "abc123")
	assert.Equal(t, "https://loc.example.com/payer?token=abc123", got)

	// Trailing slashes collapse.
	got = BuildURL("https://loc.example.com/", "abc123")
	assert.Equal(t, "https://loc.example.com/payer?token=abc123", got)
}

func TestBuildSignatureURL(t *testing.T) {
	got := BuildSignatureURL("https://loc.example.com", "tok")
	assert.Equal(t, "https://loc.example.com/signer?token=tok", got)
}

func TestFormatEUR(t *testing.T) {
	assert.Equal(t, "850,00 €", FormatEUR(decimal.NewFromInt(850)))
	assert.Equal(t, "1 234,56 €", FormatEUR(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "12 345 678,90 €", FormatEUR(decimal.RequireFromString("12345678.9")))
	assert.Equal(t, "-1 234,50 €", FormatEUR(decimal.RequireFromString("-1234.5")))
	assert.Equal(t, "0,00 €", FormatEUR(decimal.Zero))
}
