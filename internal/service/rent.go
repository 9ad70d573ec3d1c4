package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/calendar"
	"github.com/maison-solution/rental-scheduler-service/internal/mail"
	"github.com/maison-solution/rental-scheduler-service/internal/model"
	"github.com/maison-solution/rental-scheduler-service/internal/payment"
	"github.com/maison-solution/rental-scheduler-service/internal/token"
)

// Work item kinds emitted by the rent job.
const (
	KindInvitation = "invitation"
	KindReminder   = "reminder"
)

// RentService lazily creates one payment-tracking obligation per active lease
// per month and schedules invitation and reminder emails around the
// configured business day.
type RentService struct {
	rents     RentRepository
	contracts ContractRepository
	tenants   TenantRepository
	settings  SettingsRepository
	mailer    mail.Mailer
	now       func() time.Time
}

func NewRentService(rents RentRepository, contracts ContractRepository, tenants TenantRepository, settings SettingsRepository, mailer mail.Mailer) *RentService {
	return &RentService{
		rents:     rents,
		contracts: contracts,
		tenants:   tenants,
		settings:  settings,
		mailer:    mailer,
		now:       time.Now,
	}
}

// EnsureCurrentMonthObligations creates the current month's obligation for
// every lease in effect, returning how many rows were created. Running it
// twice in the same month creates nothing the second time: uniqueness on
// (contract, month, year) makes the insert a no-op.
func (s *RentService) EnsureCurrentMonthObligations(ctx context.Context, now time.Time) (int, error) {
	leases, err := s.contracts.SelectActiveForBilling(ctx, now)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lease := range leases {
		o := &model.RentObligation{
			ID:             uuid.New(),
			ContractID:     lease.ID,
			Month:          int(now.Month()),
			Year:           now.Year(),
			ExpectedAmount: lease.MonthlyRent.Add(lease.MonthlyCharges),
			PaymentStatus:  model.PaymentAwaiting,
		}
		ok, err := s.rents.CreateObligation(ctx, o)
		if err != nil {
			return created, fmt.Errorf("obligation for contract %s: %w", lease.ID, err)
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		log.Info().Int("created", created).Int("month", int(now.Month())).Int("year", now.Year()).Msg("Rent obligations created")
	}
	return created, nil
}

// ComputeInvitationDay resolves the configured ordinal against the month.
func ComputeInvitationDay(configuredOrdinal, year int, month time.Month) time.Time {
	return calendar.NthBusinessDayOfMonth(configuredOrdinal, year, month)
}

// GetOrCreateSession returns the obligation's live payment session, minting a
// new token only when none is awaiting and unexpired. This is what keeps the
// payment link identical across consecutive reminders for the same bill.
func (s *RentService) GetOrCreateSession(ctx context.Context, o *model.RentObligation, now time.Time, ttlHours int) (*model.PaymentSession, error) {
	live, err := s.rents.GetLiveSession(ctx, o.ID, now)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return live, nil
	}

	sess := &model.PaymentSession{
		ID:             uuid.New(),
		ObligationID:   o.ID,
		Token:          token.Generate(token.MinBits),
		TokenExpiresAt: token.ComputeExpiration(now, ttlHours),
		Amount:         o.ExpectedAmount,
		Status:         model.SessionAwaiting,
	}
	if err := s.rents.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ValidateSessionAccess resolves a payment link token with the same
// not-found / wrong-state / expired distinction as contract signing.
func (s *RentService) ValidateSessionAccess(ctx context.Context, supplied string, now time.Time) (*model.PaymentSession, error) {
	sess, err := s.rents.GetSessionByToken(ctx, supplied)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if sess.Status != model.SessionAwaiting {
		return sess, ErrWrongState
	}
	if !token.IsValid(sess.TokenExpiresAt, now) {
		return sess, ErrTokenExpired
	}
	return sess, nil
}

// ConfirmPayment is the administrative confirmation that an obligation was
// settled. Obligations never auto-transition to paid.
func (s *RentService) ConfirmPayment(ctx context.Context, obligationID uuid.UUID) error {
	o, err := s.rents.GetObligation(ctx, obligationID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("obligation %s: %w", obligationID, ErrNotFound)
	}
	if o.PaymentStatus == model.PaymentPaid {
		return fmt.Errorf("obligation %s already paid: %w", obligationID, ErrWrongState)
	}

	o.PaymentStatus = model.PaymentPaid
	if err := s.rents.UpdateObligation(ctx, o); err != nil {
		return err
	}

	// Close the live session so later reminders mint nothing for this bill.
	now := s.now().UTC()
	if sess, err := s.rents.GetLiveSession(ctx, o.ID, now); err == nil && sess != nil {
		sess.Status = model.SessionPaid
		if err := s.rents.UpdateSession(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// MarkUnpaid is the administrative flag for an overdue obligation.
func (s *RentService) MarkUnpaid(ctx context.Context, obligationID uuid.UUID) error {
	o, err := s.rents.GetObligation(ctx, obligationID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("obligation %s: %w", obligationID, ErrNotFound)
	}
	if o.PaymentStatus == model.PaymentPaid {
		return fmt.Errorf("obligation %s already paid: %w", obligationID, ErrWrongState)
	}
	o.PaymentStatus = model.PaymentUnpaid
	return s.rents.UpdateObligation(ctx, o)
}

// CancelObligation soft-deletes an obligation and cancels its live session.
func (s *RentService) CancelObligation(ctx context.Context, obligationID uuid.UUID) error {
	o, err := s.rents.GetObligation(ctx, obligationID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("obligation %s: %w", obligationID, ErrNotFound)
	}

	now := s.now().UTC()
	o.DeletedAt = &now
	if err := s.rents.UpdateObligation(ctx, o); err != nil {
		return err
	}
	if sess, err := s.rents.GetLiveSession(ctx, o.ID, now); err == nil && sess != nil {
		sess.Status = model.SessionCancelled
		if err := s.rents.UpdateSession(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// Name implements BatchJob.
func (s *RentService) Name() string { return "rent-tracker" }

// Enabled implements BatchJob.
func (s *RentService) Enabled(cfg *model.Settings) bool { return cfg.RentJobEnabled }

// SelectDue first tops up the month's obligations (idempotent, no external
// side effect), then picks the obligations to notify today. Invitations go
// out on the configured Nth business day for current-or-future periods;
// reminders go out on the configured days of month for any unpaid period.
// Obligations already notified today are skipped so re-runs are safe.
func (s *RentService) SelectDue(ctx context.Context, now time.Time, limit int) ([]WorkItem, error) {
	if _, err := s.EnsureCurrentMonthObligations(ctx, now); err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	invitationDay := ComputeInvitationDay(cfg.InvitationBusinessDay, now.Year(), now.Month()).Day()
	isInvitationDay := now.Day() == invitationDay
	isReminderDay := false
	for _, d := range cfg.ReminderDays {
		if now.Day() == d {
			isReminderDay = true
			break
		}
	}
	if !isInvitationDay && !isReminderDay {
		return nil, nil
	}

	open, err := s.rents.SelectOpenObligations(ctx, now, limit)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var items []WorkItem
	for _, o := range open {
		currentOrFuture := !o.PeriodStart().Before(monthStart)

		var kind string
		switch {
		case isInvitationDay && currentOrFuture:
			kind = KindInvitation
		case isReminderDay:
			kind = KindReminder
		default:
			continue
		}

		// Re-run guard: skip obligations already notified today. The most
		// recent session is consulted in any state, so a session expiring
		// later the same day does not reopen the obligation for a second send.
		if sess, err := s.rents.GetLatestSession(ctx, o.ID); err != nil {
			return nil, err
		} else if sess != nil && sess.NotifiedOn != nil && sameDay(*sess.NotifiedOn, now) {
			continue
		}

		items = append(items, WorkItem{ID: o.ID, Kind: kind})
	}
	return items, nil
}

// Process sends the invitation or reminder email for one obligation, reusing
// the live payment session. Nothing is persisted when the dispatch fails: the
// obligation stays selectable and the next run retries with the same link.
// A payment confirmed while the dispatch is in flight wins the session row:
// the stale notification stamp fails its optimistic write and the item is
// retried, where the paid obligation is a no-op.
func (s *RentService) Process(ctx context.Context, item WorkItem) error {
	o, err := s.rents.GetObligation(ctx, item.ID)
	if err != nil {
		return err
	}
	if o == nil || o.DeletedAt != nil {
		return fmt.Errorf("obligation %s: %w", item.ID, ErrNotFound)
	}
	if o.PaymentStatus == model.PaymentPaid {
		return nil
	}

	lease, err := s.contracts.GetByID(ctx, o.ContractID)
	if err != nil {
		return err
	}
	if lease == nil {
		return fmt.Errorf("contract %s: %w", o.ContractID, ErrNotFound)
	}
	tenant, err := s.tenants.GetByID(ctx, lease.TenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s: %w", lease.TenantID, ErrNotFound)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	sess, err := s.GetOrCreateSession(ctx, o, now, cfg.TokenTTLHours)
	if err != nil {
		return fmt.Errorf("obligation %s: session: %w", o.ID, err)
	}

	template := mail.TemplateRentInvitation
	if item.Kind == KindReminder {
		template = mail.TemplateRentReminder
	}
	vars := map[string]string{
		"tenant_name": tenant.Name,
		"reference":   o.ID.String(),
		"period":      fmt.Sprintf("%02d/%d", o.Month, o.Year),
		"amount":      payment.FormatEUR(o.ExpectedAmount),
		"payment_url": payment.BuildURL(cfg.SiteBaseURL, sess.Token),
		"expires_at":  sess.TokenExpiresAt.Format("02/01/2006 15:04"),
	}
	if err := s.mailer.Send(ctx, template, tenant.ContactEmail, vars, false); err != nil {
		return fmt.Errorf("obligation %s: send %s: %w", o.ID, item.Kind, err)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sess.NotifiedOn = &day
	if err := s.rents.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("obligation %s: persist notification stamp: %w", o.ID, err)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
