package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

func newContractFixture(now time.Time) (*ContractService, *fakeContractRepo, *fakeTenantRepo, *fakeMailer) {
	repo := newFakeContractRepo()
	tenants := newFakeTenantRepo()
	mailer := newFakeMailer()
	svc := NewContractService(repo, tenants, newFakeSettingsRepo(), mailer)
	svc.now = func() time.Time { return now }
	return svc, repo, tenants, mailer
}

func addTenant(tenants *fakeTenantRepo) *model.Tenant {
	t := &model.Tenant{ID: uuid.New(), Name: "Jean Martin", ContactEmail: "jean@example.com"}
	tenants.rows[t.ID] = t
	return t
}

func TestCreateForSigning(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, repo, tenants, mailer := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))

	stored, _ := repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, model.ContractPendingSignature, stored.Status)
	assert.NotEmpty(t, stored.SignatureToken)
	assert.Equal(t, now.Add(24*time.Hour), *stored.TokenExpiresAt)

	assert.Equal(t, 1, mailer.sentCount())
	sent := mailer.lastSent()
	assert.Equal(t, "signature-request", sent.template)
	assert.Contains(t, sent.vars["signature_url"], stored.SignatureToken)
}

func TestValidateAccessBoundary(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, _, tenants, _ := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	expiry := now.Add(24 * time.Hour)

	// One second before expiry: valid.
	_, err := svc.ValidateAccess(context.Background(), c.SignatureToken, expiry.Add(-time.Second))
	assert.NoError(t, err)

	// At the exact instant: expired (strict boundary).
	_, err = svc.ValidateAccess(context.Background(), c.SignatureToken, expiry)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// One second after: expired.
	_, err = svc.ValidateAccess(context.Background(), c.SignatureToken, expiry.Add(time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Unknown token: not found, never a generic failure.
	_, err = svc.ValidateAccess(context.Background(), "nonexistent", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateAccessWrongStateBeatsExpiry(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, repo, tenants, _ := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	assert.NoError(t, svc.CaptureSignature(context.Background(), c))

	stored, _ := repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, model.ContractSigned, stored.Status)

	// Token not yet expired, but the contract moved on: the caller gets
	// "wrong state" so the user sees "already completed", not "expired".
	_, err := svc.ValidateAccess(context.Background(), c.SignatureToken, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrWrongState)

	// Same answer long after expiry.
	_, err = svc.ValidateAccess(context.Background(), c.SignatureToken, now.Add(72*time.Hour))
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestValidateContractAccessTokenMismatch(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)
	c := &model.Contract{Status: model.ContractPendingSignature, SignatureToken: "stored-token", TokenExpiresAt: &expiry}

	assert.ErrorIs(t, ValidateContractAccess(c, "other-token", now), ErrTokenMismatch)
	assert.NoError(t, ValidateContractAccess(c, "stored-token", now))
}

func TestCaptureSignatureOnlyFromPending(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, _, tenants, _ := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	assert.NoError(t, svc.CaptureSignature(context.Background(), c))
	assert.Equal(t, model.ContractSigned, c.Status)
	assert.NotNil(t, c.SignedAt)

	assert.ErrorIs(t, svc.CaptureSignature(context.Background(), c), ErrWrongState)
}

func TestAdminTransitionsAndTerminalStates(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, _, tenants, _ := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	assert.NoError(t, svc.CaptureSignature(context.Background(), c))
	assert.NoError(t, svc.AdvanceVerification(context.Background(), c))
	assert.Equal(t, model.ContractUnderVerification, c.Status)
	assert.NoError(t, svc.Validate(context.Background(), c))
	assert.Equal(t, model.ContractValidated, c.Status)

	// Validated is terminal: every further transition is rejected.
	assert.ErrorIs(t, svc.Cancel(context.Background(), c, "too late"), ErrWrongState)
	assert.ErrorIs(t, svc.Reject(context.Background(), c, "no"), ErrWrongState)
	assert.ErrorIs(t, svc.AdvanceVerification(context.Background(), c), ErrWrongState)
}

func TestRejectFromAnyNonTerminalState(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, _, tenants, _ := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	assert.NoError(t, svc.Reject(context.Background(), c, "incomplete file"))
	assert.Equal(t, model.ContractRejected, c.Status)
	assert.Equal(t, "incomplete file", c.StatusReason)
}

func TestExpiryJobCancelsAndNotifies(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, repo, tenants, mailer := newContractFixture(now)
	tenant := addTenant(tenants)

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	assert.NoError(t, svc.CreateForSigning(context.Background(), c, 24))
	mailer.sent = nil

	// Not yet expired: nothing selected.
	items, err := svc.SelectDue(context.Background(), now.Add(23*time.Hour), 0)
	assert.NoError(t, err)
	assert.Empty(t, items)

	// Past expiry: selected, notified with admins in copy, then cancelled.
	later := now.Add(25 * time.Hour)
	items, err = svc.SelectDue(context.Background(), later, 0)
	assert.NoError(t, err)
	assert.Len(t, items, 1)

	assert.NoError(t, svc.Process(context.Background(), items[0]))
	sent := mailer.lastSent()
	assert.Equal(t, "signature-expired", sent.template)
	assert.True(t, sent.ccAdmins)

	stored, _ := repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, model.ContractCancelled, stored.Status)
	assert.Equal(t, "signature window expired", stored.StatusReason)

	// Cancelled contracts leave the due set.
	items, err = svc.SelectDue(context.Background(), later, 0)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpiryJobFailedNotificationLeavesContractPending(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc, repo, tenants, mailer := newContractFixture(now)
	tenant := addTenant(tenants)
	mailer.failTo[tenant.ContactEmail] = true

	c := &model.Contract{PropertyID: uuid.New(), TenantID: tenant.ID}
	// CreateForSigning also fails to mail, but the contract is persisted.
	assert.Error(t, svc.CreateForSigning(context.Background(), c, 24))

	later := now.Add(25 * time.Hour)
	items, _ := svc.SelectDue(context.Background(), later, 0)
	assert.Len(t, items, 1)

	assert.Error(t, svc.Process(context.Background(), items[0]))
	stored, _ := repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, model.ContractPendingSignature, stored.Status)

	// Still selectable next run.
	items, _ = svc.SelectDue(context.Background(), later, 0)
	assert.Len(t, items, 1)
}
