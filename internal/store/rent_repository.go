package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// RentRepository handles database operations for rent obligations and their
// payment sessions.
type RentRepository struct {
	db *sql.DB
}

func NewRentRepository(db *sql.DB) *RentRepository {
	return &RentRepository{db: db}
}

// CreateObligation inserts the obligation unless a non-deleted row already
// exists for the same (contract, month, year); the partial unique index makes
// the insert a conflict-free no-op in that case.
func (r *RentRepository) CreateObligation(ctx context.Context, o *model.RentObligation) (bool, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt

	query := `INSERT INTO rent_obligations (id, contract_id, month, year, expected_amount, payment_status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              ON CONFLICT (contract_id, month, year) WHERE deleted_at IS NULL DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.ContractID, o.Month, o.Year, o.ExpectedAmount, o.PaymentStatus, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetObligation retrieves an obligation by ID.
func (r *RentRepository) GetObligation(ctx context.Context, id uuid.UUID) (*model.RentObligation, error) {
	query := `SELECT id, contract_id, month, year, expected_amount, payment_status, created_at, updated_at, deleted_at
              FROM rent_obligations WHERE id = $1`
	o := &model.RentObligation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.ContractID, &o.Month, &o.Year, &o.ExpectedAmount, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateObligation persists payment status and soft-delete changes.
func (r *RentRepository) UpdateObligation(ctx context.Context, o *model.RentObligation) error {
	o.UpdatedAt = time.Now().UTC()
	query := `UPDATE rent_obligations SET payment_status = $2, deleted_at = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.PaymentStatus, o.DeletedAt, o.UpdatedAt)
	return err
}

// SelectOpenObligations returns non-deleted awaiting/unpaid obligations whose
// contract is still the active validated lease for its property.
func (r *RentRepository) SelectOpenObligations(ctx context.Context, now time.Time, limit int) ([]*model.RentObligation, error) {
	query := `SELECT o.id, o.contract_id, o.month, o.year, o.expected_amount, o.payment_status, o.created_at, o.updated_at, o.deleted_at
              FROM rent_obligations o
              JOIN contracts c ON c.id = o.contract_id
              WHERE o.deleted_at IS NULL
                AND o.payment_status IN ($1, $2)
                AND c.status = $3
                AND (c.end_date IS NULL OR c.end_date >= $4)
              ORDER BY o.year, o.month`
	args := []interface{}{model.PaymentAwaiting, model.PaymentUnpaid, model.ContractValidated, now}
	if limit > 0 {
		query += ` LIMIT $5`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RentObligation
	for rows.Next() {
		o := &model.RentObligation{}
		if err := rows.Scan(&o.ID, &o.ContractID, &o.Month, &o.Year, &o.ExpectedAmount, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetLiveSession returns the obligation's awaiting, unexpired session.
// Concurrent writers on the same session are serialised by the optimistic
// check in UpdateSession, not by row locks.
func (r *RentRepository) GetLiveSession(ctx context.Context, obligationID uuid.UUID, now time.Time) (*model.PaymentSession, error) {
	query := `SELECT id, obligation_id, token, token_expires_at, amount, status, notified_on, created_at, updated_at
              FROM payment_sessions
              WHERE obligation_id = $1 AND status = $2 AND token_expires_at > $3
              ORDER BY created_at DESC LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, obligationID, model.SessionAwaiting, now))
}

// GetLatestSession returns the obligation's most recent session in any state.
// The scheduler consults it for the same-day notification guard, so a session
// that expired or closed after a send still suppresses a second send that day.
func (r *RentRepository) GetLatestSession(ctx context.Context, obligationID uuid.UUID) (*model.PaymentSession, error) {
	query := `SELECT id, obligation_id, token, token_expires_at, amount, status, notified_on, created_at, updated_at
              FROM payment_sessions
              WHERE obligation_id = $1
              ORDER BY created_at DESC LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, obligationID))
}

// GetSessionByToken retrieves a session by its access token.
func (r *RentRepository) GetSessionByToken(ctx context.Context, token string) (*model.PaymentSession, error) {
	query := `SELECT id, obligation_id, token, token_expires_at, amount, status, notified_on, created_at, updated_at
              FROM payment_sessions WHERE token = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, token))
}

// CreateSession inserts a new payment session.
func (r *RentRepository) CreateSession(ctx context.Context, s *model.PaymentSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	query := `INSERT INTO payment_sessions (id, obligation_id, token, token_expires_at, amount, status, notified_on, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ObligationID, s.Token, s.TokenExpiresAt, s.Amount, s.Status, s.NotifiedOn, s.CreatedAt, s.UpdatedAt)
	return err
}

// UpdateSession persists status and notification-stamp changes. The write is
// an optimistic check on the updated_at value the caller loaded, so a tenant
// payment landing while the scheduler handles the same session cannot be
// overwritten from a stale copy; the loser sees sql.ErrNoRows.
func (r *RentRepository) UpdateSession(ctx context.Context, s *model.PaymentSession) error {
	now := time.Now().UTC()
	query := `UPDATE payment_sessions SET status = $2, notified_on = $3, updated_at = $4
              WHERE id = $1 AND updated_at = $5`
	res, err := r.db.ExecContext(ctx, query, s.ID, s.Status, s.NotifiedOn, now, s.UpdatedAt)
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
	s.UpdatedAt = now
	return nil
}

func scanSession(row *sql.Row) (*model.PaymentSession, error) {
	s := &model.PaymentSession{}
	err := row.Scan(&s.ID, &s.ObligationID, &s.Token, &s.TokenExpiresAt, &s.Amount, &s.Status, &s.NotifiedOn, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
