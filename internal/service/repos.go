package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// Repository interfaces consumed by the services. The store package provides
// the PostgreSQL implementations; tests use in-memory fakes. Lookups return
// (nil, nil) when no row matches.

type CandidatureRepository interface {
	Create(ctx context.Context, c *model.Candidature) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Candidature, error)
	Update(ctx context.Context, c *model.Candidature) error
	// SelectAwaitingResponse returns candidatures still awaiting their
	// deferred response whose scheduled timestamp has passed, plus legacy
	// rows with no stored timestamp (the caller applies the fallback rule).
	SelectAwaitingResponse(ctx context.Context, now time.Time, limit int) ([]*model.Candidature, error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *model.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	GetBySignatureToken(ctx context.Context, token string) (*model.Contract, error)
	Update(ctx context.Context, c *model.Contract) error
	// SelectExpiredPendingSignature returns pending-signature contracts whose
	// token expiry is at or before now.
	SelectExpiredPendingSignature(ctx context.Context, now time.Time, limit int) ([]*model.Contract, error)
	// SelectActiveForBilling returns, per property, the most recently
	// validated contract whose effective date has passed and whose end date,
	// if any, has not.
	SelectActiveForBilling(ctx context.Context, now time.Time) ([]*model.Contract, error)
}

type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

type RentRepository interface {
	// CreateObligation inserts the obligation unless a non-deleted row for the
	// same (contract, month, year) already exists; created reports whether a
	// row was inserted.
	CreateObligation(ctx context.Context, o *model.RentObligation) (created bool, err error)
	GetObligation(ctx context.Context, id uuid.UUID) (*model.RentObligation, error)
	UpdateObligation(ctx context.Context, o *model.RentObligation) error
	// SelectOpenObligations returns non-deleted awaiting/unpaid obligations
	// whose contract is still the active lease for its property.
	SelectOpenObligations(ctx context.Context, now time.Time, limit int) ([]*model.RentObligation, error)

	GetLiveSession(ctx context.Context, obligationID uuid.UUID, now time.Time) (*model.PaymentSession, error)
	// GetLatestSession returns the obligation's most recent session in any
	// state, nil when none was ever created.
	GetLatestSession(ctx context.Context, obligationID uuid.UUID) (*model.PaymentSession, error)
	GetSessionByToken(ctx context.Context, token string) (*model.PaymentSession, error)
	CreateSession(ctx context.Context, s *model.PaymentSession) error
	// UpdateSession is an optimistic write on the UpdatedAt value the caller
	// loaded; a concurrent change makes it fail rather than overwrite.
	UpdateSession(ctx context.Context, s *model.PaymentSession) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, s *model.Settings) error
}

type JobRunRepository interface {
	// Begin records the start of a run. acquired is false when another run of
	// the same job is already in progress.
	Begin(ctx context.Context, jobName string, now time.Time) (run *model.JobRun, acquired bool, err error)
	Finish(ctx context.Context, run *model.JobRun, now time.Time) error
}
