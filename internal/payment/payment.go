// Package payment composes tenant-facing payment links and formats monetary
// amounts for the email templates.
package payment

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// BuildURL composes the public payment link for a session token. The token is
// passed as an opaque query value.
func BuildURL(siteBaseURL, sessionToken string) string {
	u, err := url.Parse(siteBaseURL)
	if err != nil {
		// Base URL comes from validated settings; fall back to raw join.
		return strings.TrimRight(siteBaseURL, "/") + "/payer?token=" + url.QueryEscape(sessionToken)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/payer"
	q := u.Query()
	q.Set("token", sessionToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// BuildSignatureURL composes the public lease-signature link.
func BuildSignatureURL(siteBaseURL, signatureToken string) string {
	u, err := url.Parse(siteBaseURL)
	if err != nil {
		return strings.TrimRight(siteBaseURL, "/") + "/signer?token=" + url.QueryEscape(signatureToken)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/signer"
	q := u.Query()
	q.Set("token", signatureToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// FormatEUR renders an amount as a French-locale euro string, two decimals
// with a space thousands separator: 1 234,56 €.
func FormatEUR(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, decPart := parts[0], parts[1]

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	out := strings.Join(grouped, " ") + "," + decPart + " €"
	if neg {
		out = "-" + out
	}
	return out
}
