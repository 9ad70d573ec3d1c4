package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/maison-solution/rental-scheduler-service/internal/crypto"
	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// ContractRepository handles database operations for leases.
type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `id, property_id, tenant_id, status, status_reason,
	signature_token, token_expires_at, monthly_rent, monthly_charges,
	effective_date, end_date, signed_at, created_at, updated_at`

// Create inserts a new contract.
func (r *ContractRepository) Create(ctx context.Context, c *model.Contract) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	query := `INSERT INTO contracts (` + contractColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.PropertyID, c.TenantID, c.Status, c.StatusReason,
		c.SignatureToken, c.TokenExpiresAt, c.MonthlyRent, c.MonthlyCharges,
		c.EffectiveDate, c.EndDate, c.SignedAt, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetByID retrieves a contract by ID.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.db.QueryRowContext(ctx, query, id))
}

// GetBySignatureToken retrieves a contract by its signature token.
func (r *ContractRepository) GetBySignatureToken(ctx context.Context, token string) (*model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE signature_token = $1`
	return scanContract(r.db.QueryRowContext(ctx, query, token))
}

// Update persists status, dates and token fields. The write is an optimistic
// check on the updated_at value the caller loaded, so a tenant signing a
// lease and the scheduler cancelling it cannot both win on the same row; the
// loser sees sql.ErrNoRows.
func (r *ContractRepository) Update(ctx context.Context, c *model.Contract) error {
	now := time.Now().UTC()
	query := `UPDATE contracts
              SET status = $2, status_reason = $3, signature_token = $4, token_expires_at = $5,
                  effective_date = $6, end_date = $7, signed_at = $8, updated_at = $9
              WHERE id = $1 AND updated_at = $10`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.Status, c.StatusReason, c.SignatureToken, c.TokenExpiresAt,
		c.EffectiveDate, c.EndDate, c.SignedAt, now, c.UpdatedAt)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	c.UpdatedAt = now
	return nil
}

// SelectExpiredPendingSignature returns pending-signature contracts whose
// token window closed at or before now.
func (r *ContractRepository) SelectExpiredPendingSignature(ctx context.Context, now time.Time, limit int) ([]*model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
              WHERE status = $1 AND token_expires_at IS NOT NULL AND token_expires_at <= $2
              ORDER BY token_expires_at`
	args := []interface{}{model.ContractPendingSignature, now}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.selectContracts(ctx, query, args...)
}

// SelectActiveForBilling returns, per property, the most recently validated
// contract in effect at now.
func (r *ContractRepository) SelectActiveForBilling(ctx context.Context, now time.Time) ([]*model.Contract, error) {
	query := `SELECT DISTINCT ON (property_id) ` + contractColumns + ` FROM contracts
              WHERE status = $1
                AND effective_date IS NOT NULL AND effective_date <= $2
                AND (end_date IS NULL OR end_date >= $2)
              ORDER BY property_id, effective_date DESC`
	return r.selectContracts(ctx, query, model.ContractValidated, now)
}

func (r *ContractRepository) selectContracts(ctx context.Context, query string, args ...interface{}) ([]*model.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Contract
	for rows.Next() {
		c := &model.Contract{}
		if err := rows.Scan(
			&c.ID, &c.PropertyID, &c.TenantID, &c.Status, &c.StatusReason,
			&c.SignatureToken, &c.TokenExpiresAt, &c.MonthlyRent, &c.MonthlyCharges,
			&c.EffectiveDate, &c.EndDate, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContract(row *sql.Row) (*model.Contract, error) {
	c := &model.Contract{}
	err := row.Scan(
		&c.ID, &c.PropertyID, &c.TenantID, &c.Status, &c.StatusReason,
		&c.SignatureToken, &c.TokenExpiresAt, &c.MonthlyRent, &c.MonthlyCharges,
		&c.EffectiveDate, &c.EndDate, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TenantRepository handles database operations for lease holders.
type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetByID retrieves a tenant by ID, decrypting the contact email.
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	query := `SELECT id, name, encrypted_email, email_iv, created_at FROM tenants WHERE id = $1`
	t := &model.Tenant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.EncryptedEmail, &t.EmailIV, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(t.EncryptedEmail) > 0 && len(t.EmailIV) > 0 {
		email, err := crypto.Decrypt(t.EncryptedEmail, t.EmailIV)
		if err != nil {
			return nil, err
		}
		t.ContactEmail = email
	}
	return t, nil
}

// Create inserts a new tenant, encrypting the contact email.
func (r *TenantRepository) Create(ctx context.Context, t *model.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.ContactEmail != "" {
		encrypted, iv, err := crypto.Encrypt(t.ContactEmail)
		if err != nil {
			return err
		}
		t.EncryptedEmail = encrypted
		t.EmailIV = iv
	}
	t.CreatedAt = time.Now().UTC()
	query := `INSERT INTO tenants (id, name, encrypted_email, email_iv, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.EncryptedEmail, t.EmailIV, t.CreatedAt)
	return err
}
