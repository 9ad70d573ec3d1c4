package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// In-memory repository fakes. They mirror the store contracts: lookups return
// (nil, nil) when nothing matches, obligation creation is unique per
// (contract, month, year) among non-deleted rows, and job runs enforce one
// running record per job name.

type fakeCandidatureRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Candidature
}

func newFakeCandidatureRepo() *fakeCandidatureRepo {
	return &fakeCandidatureRepo{rows: make(map[uuid.UUID]*model.Candidature)}
}

func (r *fakeCandidatureRepo) Create(_ context.Context, c *model.Candidature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *fakeCandidatureRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Candidature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCandidatureRepo) Update(_ context.Context, c *model.Candidature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID]; !ok {
		return errors.New("fake: candidature missing")
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *fakeCandidatureRepo) SelectAwaitingResponse(_ context.Context, now time.Time, limit int) ([]*model.Candidature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Candidature
	for _, c := range r.rows {
		if c.AutoResponseState != model.ResponseAwaiting {
			continue
		}
		if c.ScheduledResponseAt != nil && now.Before(*c.ScheduledResponseAt) {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeContractRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Contract
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{rows: make(map[uuid.UUID]*model.Contract)}
}

func (r *fakeContractRepo) Create(_ context.Context, c *model.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *fakeContractRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContractRepo) GetBySignatureToken(_ context.Context, token string) (*model.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.SignatureToken == token {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeContractRepo) Update(_ context.Context, c *model.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID]; !ok {
		return errors.New("fake: contract missing")
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *fakeContractRepo) SelectExpiredPendingSignature(_ context.Context, now time.Time, limit int) ([]*model.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Contract
	for _, c := range r.rows {
		if c.Status != model.ContractPendingSignature || c.TokenExpiresAt == nil {
			continue
		}
		if now.Before(*c.TokenExpiresAt) {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeContractRepo) SelectActiveForBilling(_ context.Context, now time.Time) ([]*model.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[uuid.UUID]*model.Contract)
	for _, c := range r.rows {
		if c.Status != model.ContractValidated || c.EffectiveDate == nil || c.EffectiveDate.After(now) {
			continue
		}
		if c.EndDate != nil && c.EndDate.Before(now) {
			continue
		}
		cur, ok := latest[c.PropertyID]
		if !ok || c.EffectiveDate.After(*cur.EffectiveDate) {
			latest[c.PropertyID] = c
		}
	}
	var out []*model.Contract
	for _, c := range latest {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type fakeTenantRepo struct {
	rows map[uuid.UUID]*model.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{rows: make(map[uuid.UUID]*model.Tenant)}
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	t, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type fakeRentRepo struct {
	mu          sync.Mutex
	obligations map[uuid.UUID]*model.RentObligation
	sessions    map[uuid.UUID]*model.PaymentSession
}

func newFakeRentRepo() *fakeRentRepo {
	return &fakeRentRepo{
		obligations: make(map[uuid.UUID]*model.RentObligation),
		sessions:    make(map[uuid.UUID]*model.PaymentSession),
	}
}

func (r *fakeRentRepo) CreateObligation(_ context.Context, o *model.RentObligation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.obligations {
		if existing.DeletedAt == nil &&
			existing.ContractID == o.ContractID &&
			existing.Month == o.Month && existing.Year == o.Year {
			return false, nil
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	r.obligations[o.ID] = &cp
	return true, nil
}

func (r *fakeRentRepo) GetObligation(_ context.Context, id uuid.UUID) (*model.RentObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.obligations[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRentRepo) UpdateObligation(_ context.Context, o *model.RentObligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.obligations[o.ID]; !ok {
		return errors.New("fake: obligation missing")
	}
	cp := *o
	r.obligations[o.ID] = &cp
	return nil
}

func (r *fakeRentRepo) SelectOpenObligations(_ context.Context, _ time.Time, limit int) ([]*model.RentObligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RentObligation
	for _, o := range r.obligations {
		if o.DeletedAt != nil || o.PaymentStatus == model.PaymentPaid {
			continue
		}
		cp := *o
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRentRepo) GetLiveSession(_ context.Context, obligationID uuid.UUID, now time.Time) (*model.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ObligationID == obligationID && s.IsLive(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRentRepo) GetLatestSession(_ context.Context, obligationID uuid.UUID) (*model.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.PaymentSession
	for _, s := range r.sessions {
		if s.ObligationID != obligationID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeRentRepo) GetSessionByToken(_ context.Context, token string) (*model.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRentRepo) CreateSession(_ context.Context, s *model.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

// UpdateSession mirrors the store's optimistic write: a caller holding a stale
// copy loses and sees sql.ErrNoRows.
func (r *fakeRentRepo) UpdateSession(_ context.Context, s *model.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok {
		return errors.New("fake: session missing")
	}
	if !stored.UpdatedAt.Equal(s.UpdatedAt) {
		return sql.ErrNoRows
	}
	s.UpdatedAt = time.Now()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

type fakeSettingsRepo struct {
	mu  sync.Mutex
	cfg model.Settings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{cfg: model.Settings{
		ResponseDelayValue:    4,
		ResponseDelayUnit:     model.DelayDays,
		InvitationBusinessDay: 1,
		ReminderDays:          []int{10, 20},
		TokenTTLHours:         240,
		CandidatureJobEnabled: true,
		ContractJobEnabled:    true,
		RentJobEnabled:        true,
		SiteBaseURL:           "https://loc.example.com",
		AdminEmail:            "admin@example.com",
	}}
}

func (r *fakeSettingsRepo) Get(_ context.Context) (*model.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := r.cfg
	return &cp, nil
}

func (r *fakeSettingsRepo) Update(_ context.Context, s *model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = *s
	return nil
}

type fakeJobRunRepo struct {
	mu      sync.Mutex
	running map[string]bool
	runs    []*model.JobRun
}

func newFakeJobRunRepo() *fakeJobRunRepo {
	return &fakeJobRunRepo{running: make(map[string]bool)}
}

func (r *fakeJobRunRepo) Begin(_ context.Context, jobName string, now time.Time) (*model.JobRun, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[jobName] {
		return nil, false, nil
	}
	r.running[jobName] = true
	run := &model.JobRun{
		ID:        int64(len(r.runs) + 1),
		JobName:   jobName,
		Status:    model.JobRunning,
		StartedAt: now,
	}
	r.runs = append(r.runs, run)
	return run, true, nil
}

func (r *fakeJobRunRepo) Finish(_ context.Context, run *model.JobRun, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[run.JobName] = false
	run.EndedAt = &now
	return nil
}

// fakeMailer records sends and can be told to fail specific recipients.
type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
}

type sentMail struct {
	template  string
	recipient string
	vars      map[string]string
	ccAdmins  bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failTo: make(map[string]bool)}
}

func (m *fakeMailer) Send(_ context.Context, templateID, recipient string, vars map[string]string, ccAdmins bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[recipient] {
		return errors.New("fake mailer: provider rejected message")
	}
	m.sent = append(m.sent, sentMail{template: templateID, recipient: recipient, vars: vars, ccAdmins: ccAdmins})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) lastSent() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}
