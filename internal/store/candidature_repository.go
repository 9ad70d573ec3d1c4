package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/maison-solution/rental-scheduler-service/internal/crypto"
	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// CandidatureRepository handles database operations for rental applications.
type CandidatureRepository struct {
	db *sql.DB
}

func NewCandidatureRepository(db *sql.DB) *CandidatureRepository {
	return &CandidatureRepository{db: db}
}

const candidatureColumns = `id, property_id, applicant_name, encrypted_email, email_iv,
	income_bracket, employment_status, on_trial_period, income_type, occupant_count, has_guarantee,
	status, rejection_reason, auto_response_state, scheduled_response_at, submitted_at, updated_at`

// Create inserts a new candidature, encrypting the contact email.
func (r *CandidatureRepository) Create(ctx context.Context, c *model.Candidature) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ContactEmail != "" {
		encrypted, iv, err := crypto.Encrypt(c.ContactEmail)
		if err != nil {
			return err
		}
		c.EncryptedEmail = encrypted
		c.EmailIV = iv
	}
	c.UpdatedAt = time.Now().UTC()

	query := `INSERT INTO candidatures (` + candidatureColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.PropertyID, c.ApplicantName, c.EncryptedEmail, c.EmailIV,
		c.IncomeBracket, c.EmploymentStatus, c.OnTrialPeriod, c.IncomeType, c.OccupantCount, c.HasGuarantee,
		c.Status, c.RejectionReason, c.AutoResponseState, c.ScheduledResponseAt, c.SubmittedAt, c.UpdatedAt)
	return err
}

// GetByID retrieves a candidature by ID.
func (r *CandidatureRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Candidature, error) {
	query := `SELECT ` + candidatureColumns + ` FROM candidatures WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Update persists the mutable fields. The scheduled response timestamp is
// deliberately absent: once set it is immutable.
func (r *CandidatureRepository) Update(ctx context.Context, c *model.Candidature) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE candidatures
              SET status = $2, rejection_reason = $3, auto_response_state = $4, updated_at = $5
              WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Status, c.RejectionReason, c.AutoResponseState, c.UpdatedAt)
	return err
}

// SelectAwaitingResponse returns candidatures awaiting their deferred
// response whose stored timestamp has passed, plus legacy rows that have none.
func (r *CandidatureRepository) SelectAwaitingResponse(ctx context.Context, now time.Time, limit int) ([]*model.Candidature, error) {
	query := `SELECT ` + candidatureColumns + ` FROM candidatures
              WHERE auto_response_state = $1
                AND (scheduled_response_at IS NULL OR scheduled_response_at <= $2)
              ORDER BY submitted_at`
	args := []interface{}{model.ResponseAwaiting, now}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Candidature
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *CandidatureRepository) scanOne(row *sql.Row) (*model.Candidature, error) {
	c, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CandidatureRepository) scanRow(row rowScanner) (*model.Candidature, error) {
	c := &model.Candidature{}
	err := row.Scan(
		&c.ID, &c.PropertyID, &c.ApplicantName, &c.EncryptedEmail, &c.EmailIV,
		&c.IncomeBracket, &c.EmploymentStatus, &c.OnTrialPeriod, &c.IncomeType, &c.OccupantCount, &c.HasGuarantee,
		&c.Status, &c.RejectionReason, &c.AutoResponseState, &c.ScheduledResponseAt, &c.SubmittedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(c.EncryptedEmail) > 0 && len(c.EmailIV) > 0 {
		email, err := crypto.Decrypt(c.EncryptedEmail, c.EmailIV)
		if err != nil {
			return nil, err
		}
		c.ContactEmail = email
	}
	return c, nil
}
