package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus is the lease state machine position.
type ContractStatus string

const (
	ContractPendingSignature  ContractStatus = "pending-signature"
	ContractSigned            ContractStatus = "signed"
	ContractUnderVerification ContractStatus = "under-verification"
	ContractValidated         ContractStatus = "validated"
	ContractRejected          ContractStatus = "rejected"
	ContractCancelled         ContractStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s ContractStatus) IsTerminal() bool {
	return s == ContractValidated || s == ContractRejected || s == ContractCancelled
}

// Contract represents the contracts table: one lease between a property and a tenant.
type Contract struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   uuid.UUID `json:"tenant_id"`

	Status       ContractStatus `json:"status"`
	StatusReason string         `json:"status_reason,omitempty"`

	SignatureToken string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	MonthlyCharges decimal.Decimal `json:"monthly_charges"`

	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property represents the properties table.
type Property struct {
	ID        uuid.UUID `json:"id"`
	Reference string    `json:"reference"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant represents the tenants table: a lease holder.
// ContactEmail is transient plaintext; only the encrypted form is stored.
type Tenant struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	ContactEmail   string    `json:"-"`
	EncryptedEmail []byte    `json:"-"`
	EmailIV        []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
