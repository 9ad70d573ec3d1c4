package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether a monthly rent obligation was settled.
type PaymentStatus string

const (
	PaymentAwaiting PaymentStatus = "awaiting"
	PaymentPaid     PaymentStatus = "paid"
	PaymentUnpaid   PaymentStatus = "unpaid"
)

// SessionStatus is the lifecycle of a tokenized payment session.
type SessionStatus string

const (
	SessionAwaiting  SessionStatus = "awaiting"
	SessionPaid      SessionStatus = "paid"
	SessionCancelled SessionStatus = "cancelled"
)

// RentObligation represents the rent_obligations table: one lease's expected
// rent plus charges for one calendar month. At most one non-deleted row exists
// per (contract, month, year).
type RentObligation struct {
	ID         uuid.UUID `json:"id"`
	ContractID uuid.UUID `json:"contract_id"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`

	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// PeriodStart returns midnight UTC on the first day of the obligation's month.
func (o *RentObligation) PeriodStart() time.Time {
	return time.Date(o.Year, time.Month(o.Month), 1, 0, 0, 0, 0, time.UTC)
}

// PaymentSession represents the payment_sessions table: an ephemeral tokenized
// handle letting an unauthenticated tenant pay one obligation. Reminders reuse
// the live session so the tenant keeps receiving the same link.
type PaymentSession struct {
	ID           uuid.UUID `json:"id"`
	ObligationID uuid.UUID `json:"obligation_id"`

	Token          string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`

	Amount decimal.Decimal `json:"amount"`
	Status SessionStatus   `json:"status"`

	// NotifiedOn is the last calendar day (UTC, truncated) an invitation or
	// reminder email for this session was successfully dispatched. It is the
	// re-run guard: a second batch run on the same day skips the obligation.
	NotifiedOn *time.Time `json:"notified_on,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLive reports whether the session can still be used and reused: awaiting
// payment and not past its token expiry (strict comparison, same convention
// as the token issuer).
func (s *PaymentSession) IsLive(now time.Time) bool {
	return s.Status == SessionAwaiting && now.Before(s.TokenExpiresAt)
}
