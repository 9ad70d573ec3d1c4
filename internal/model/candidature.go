package model

import (
	"time"

	"github.com/google/uuid"
)

// CandidatureStatus is the eligibility verdict stored on a rental application.
type CandidatureStatus string

const (
	CandidaturePending  CandidatureStatus = "pending"
	CandidatureAccepted CandidatureStatus = "accepted"
	CandidatureRejected CandidatureStatus = "rejected"
)

// AutoResponseState tracks whether the deferred decision email went out.
type AutoResponseState string

const (
	ResponseAwaiting   AutoResponseState = "awaiting"
	ResponseSentAccept AutoResponseState = "sent-accept"
	ResponseSentReject AutoResponseState = "sent-reject"
)

// IncomeBracket is an ordered monthly net income band declared by the applicant.
type IncomeBracket string

const (
	IncomeBelow1500  IncomeBracket = "below-1500"
	Income1500To2500 IncomeBracket = "1500-2500"
	Income2500To3500 IncomeBracket = "2500-3500"
	IncomeAbove3500  IncomeBracket = "above-3500"
)

// EmploymentStatus is the applicant's declared work situation.
type EmploymentStatus string

const (
	EmploymentPermanent    EmploymentStatus = "permanent"
	EmploymentFixedTerm    EmploymentStatus = "fixed-term"
	EmploymentSelfEmployed EmploymentStatus = "self-employed"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
)

// IncomeType distinguishes regular salary from irregular sources.
type IncomeType string

const (
	IncomeRegular   IncomeType = "regular"
	IncomeIrregular IncomeType = "irregular"
)

// Candidature represents the candidatures table: one rental application.
// ContactEmail is transient plaintext; only the encrypted form is stored.
type Candidature struct {
	ID             uuid.UUID  `json:"id"`
	PropertyID     uuid.UUID  `json:"property_id"`
	ApplicantName  string     `json:"applicant_name"`
	ContactEmail   string     `json:"-"`
	EncryptedEmail []byte     `json:"-"`
	EmailIV        []byte     `json:"-"`

	IncomeBracket    IncomeBracket    `json:"income_bracket"`
	EmploymentStatus EmploymentStatus `json:"employment_status"`
	OnTrialPeriod    bool             `json:"on_trial_period"`
	IncomeType       IncomeType       `json:"income_type"`
	OccupantCount    int              `json:"occupant_count"`
	HasGuarantee     bool             `json:"has_guarantee"`

	Status          CandidatureStatus `json:"status"`
	RejectionReason string            `json:"rejection_reason,omitempty"`

	AutoResponseState   AutoResponseState `json:"auto_response_state"`
	ScheduledResponseAt *time.Time        `json:"scheduled_response_at,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
