package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/mail"
	"github.com/maison-solution/rental-scheduler-service/internal/model"
	"github.com/maison-solution/rental-scheduler-service/internal/payment"
	"github.com/maison-solution/rental-scheduler-service/internal/token"
)

// ContractService drives the lease state machine:
//
//	pending-signature -> signed -> under-verification -> validated
//	any non-terminal  -> rejected | cancelled
//
// validated, rejected and cancelled are terminal. The signature token is
// usable only while the contract is pending-signature and the token has not
// expired; any other status makes it permanently inert.
type ContractService struct {
	repo     ContractRepository
	tenants  TenantRepository
	settings SettingsRepository
	mailer   mail.Mailer
	now      func() time.Time
}

func NewContractService(repo ContractRepository, tenants TenantRepository, settings SettingsRepository, mailer mail.Mailer) *ContractService {
	return &ContractService{
		repo:     repo,
		tenants:  tenants,
		settings: settings,
		mailer:   mailer,
		now:      time.Now,
	}
}

// CreateForSigning assigns a fresh signature token with the given validity
// window, persists the contract as pending-signature and emails the tenant
// the signing link.
func (s *ContractService) CreateForSigning(ctx context.Context, c *model.Contract, hours int) error {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	expires := token.ComputeExpiration(now, hours)
	c.SignatureToken = token.Generate(token.MinBits)
	c.TokenExpiresAt = &expires
	c.Status = model.ContractPendingSignature

	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}

	tenant, err := s.tenants.GetByID(ctx, c.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s: %w", c.TenantID, ErrNotFound)
	}

	vars := map[string]string{
		"tenant_name":   tenant.Name,
		"reference":     c.ID.String(),
		"signature_url": payment.BuildSignatureURL(cfg.SiteBaseURL, c.SignatureToken),
		"expires_at":    expires.Format("02/01/2006 15:04"),
	}
	if err := s.mailer.Send(ctx, mail.TemplateSignatureRequest, tenant.ContactEmail, vars, false); err != nil {
		// The contract and token are already persisted; the admin can resend.
		return fmt.Errorf("contract %s: send signature request: %w", c.ID, err)
	}

	log.Info().Str("contract_id", c.ID.String()).Time("token_expires_at", expires).Msg("Contract sent for signature")
	return nil
}

// ValidateAccess resolves a signing link token. Status is checked before
// expiration: a token on a contract that already moved on is rejected as
// ErrWrongState even if it has also expired, which drives the "already
// completed" user message rather than "expired".
func (s *ContractService) ValidateAccess(ctx context.Context, supplied string, now time.Time) (*model.Contract, error) {
	c, err := s.repo.GetBySignatureToken(ctx, supplied)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, ValidateContractAccess(c, supplied, now)
}

// ValidateContractAccess checks a supplied token against a loaded contract.
// The stored status and expiry are the single source of truth; nothing
// client-supplied is trusted beyond the token value itself.
func ValidateContractAccess(c *model.Contract, supplied string, now time.Time) error {
	if c.Status != model.ContractPendingSignature {
		return ErrWrongState
	}
	if subtle.ConstantTimeCompare([]byte(c.SignatureToken), []byte(supplied)) != 1 {
		return ErrTokenMismatch
	}
	if c.TokenExpiresAt == nil || !token.IsValid(*c.TokenExpiresAt, now) {
		return ErrTokenExpired
	}
	return nil
}

// CaptureSignature records a successful signature. Only valid from
// pending-signature; the token becomes permanently unusable afterwards even
// if its expiry has not passed.
func (s *ContractService) CaptureSignature(ctx context.Context, c *model.Contract) error {
	if c.Status != model.ContractPendingSignature {
		return fmt.Errorf("contract %s: capture signature from %s: %w", c.ID, c.Status, ErrWrongState)
	}
	now := s.now().UTC()
	c.Status = model.ContractSigned
	c.SignedAt = &now
	return s.repo.Update(ctx, c)
}

// AdvanceVerification moves the contract into administrative verification.
func (s *ContractService) AdvanceVerification(ctx context.Context, c *model.Contract) error {
	return s.adminTransition(ctx, c, model.ContractUnderVerification, "")
}

// Validate marks the lease as fully validated; billing picks it up from here.
func (s *ContractService) Validate(ctx context.Context, c *model.Contract) error {
	return s.adminTransition(ctx, c, model.ContractValidated, "")
}

// Reject terminally rejects the contract.
func (s *ContractService) Reject(ctx context.Context, c *model.Contract, reason string) error {
	return s.adminTransition(ctx, c, model.ContractRejected, reason)
}

// Cancel terminally cancels the contract; any outstanding token is inert.
func (s *ContractService) Cancel(ctx context.Context, c *model.Contract, reason string) error {
	return s.adminTransition(ctx, c, model.ContractCancelled, reason)
}

// adminTransition applies an administrative move, permitted from any
// non-terminal state.
func (s *ContractService) adminTransition(ctx context.Context, c *model.Contract, to model.ContractStatus, reason string) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("contract %s: transition %s -> %s: %w", c.ID, c.Status, to, ErrWrongState)
	}
	c.Status = to
	c.StatusReason = reason
	return s.repo.Update(ctx, c)
}

// Name implements BatchJob.
func (s *ContractService) Name() string { return "contract-expiry" }

// Enabled implements BatchJob.
func (s *ContractService) Enabled(cfg *model.Settings) bool { return cfg.ContractJobEnabled }

// SelectDue returns pending-signature contracts whose token window closed.
func (s *ContractService) SelectDue(ctx context.Context, now time.Time, limit int) ([]WorkItem, error) {
	rows, err := s.repo.SelectExpiredPendingSignature(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	items := make([]WorkItem, 0, len(rows))
	for _, c := range rows {
		items = append(items, WorkItem{ID: c.ID})
	}
	return items, nil
}

// Process cancels one expired pending-signature contract. The tenant and the
// admins are notified first; the cancellation is persisted only after the
// notification succeeded so a failed send is retried on the next run.
func (s *ContractService) Process(ctx context.Context, item WorkItem) error {
	c, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("contract %s: %w", item.ID, ErrNotFound)
	}
	if c.Status != model.ContractPendingSignature {
		// Signed or handled between selection and processing.
		return nil
	}

	tenant, err := s.tenants.GetByID(ctx, c.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s: %w", c.TenantID, ErrNotFound)
	}

	vars := map[string]string{
		"tenant_name": tenant.Name,
		"reference":   c.ID.String(),
	}
	if err := s.mailer.Send(ctx, mail.TemplateSignatureExpired, tenant.ContactEmail, vars, true); err != nil {
		return fmt.Errorf("contract %s: send expiry notice: %w", c.ID, err)
	}

	c.Status = model.ContractCancelled
	c.StatusReason = "signature window expired"
	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("contract %s: persist cancellation: %w", c.ID, err)
	}
	return nil
}

// GetByID loads a contract, translating a missing row into ErrNotFound.
func (s *ContractService) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}
