package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

const settingsCacheKey = "settings:v1"

// SettingsRepository reads and writes the single-row back-office
// configuration, with a Redis cache in front of the database.
type SettingsRepository struct {
	db    *sql.DB
	redis RedisClient
}

func NewSettingsRepository(db *sql.DB, redis RedisClient) *SettingsRepository {
	return &SettingsRepository{db: db, redis: redis}
}

// Get returns the current settings. The cache holds them for an hour; any
// update invalidates it. Scheduled work never re-reads settings for entities
// that captured their snapshot at scheduling time.
func (r *SettingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, settingsCacheKey).Result(); err == nil {
			s := &model.Settings{}
			if err := json.Unmarshal([]byte(cached), s); err == nil {
				return s, nil
			}
		}
	}

	query := `SELECT response_delay_value, response_delay_unit, invitation_business_day, reminder_days,
	                 token_ttl_hours, candidature_job_enabled, contract_job_enabled, rent_job_enabled,
	                 site_base_url, admin_email, updated_at
              FROM settings WHERE id = 1`
	s := &model.Settings{}
	var reminderDays []byte
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ResponseDelayValue, &s.ResponseDelayUnit, &s.InvitationBusinessDay, &reminderDays,
		&s.TokenTTLHours, &s.CandidatureJobEnabled, &s.ContractJobEnabled, &s.RentJobEnabled,
		&s.SiteBaseURL, &s.AdminEmail, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reminderDays, &s.ReminderDays); err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(s); err == nil {
			r.redis.SetEx(ctx, settingsCacheKey, data, 1*time.Hour)
		}
	}
	return s, nil
}

// Update persists new settings and invalidates the cache.
func (r *SettingsRepository) Update(ctx context.Context, s *model.Settings) error {
	reminderDays, err := json.Marshal(s.ReminderDays)
	if err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	query := `UPDATE settings
              SET response_delay_value = $1, response_delay_unit = $2, invitation_business_day = $3,
                  reminder_days = $4, token_ttl_hours = $5, candidature_job_enabled = $6,
                  contract_job_enabled = $7, rent_job_enabled = $8, site_base_url = $9,
                  admin_email = $10, updated_at = $11
              WHERE id = 1`
	_, err = r.db.ExecContext(ctx, query,
		s.ResponseDelayValue, s.ResponseDelayUnit, s.InvitationBusinessDay, reminderDays,
		s.TokenTTLHours, s.CandidatureJobEnabled, s.ContractJobEnabled, s.RentJobEnabled,
		s.SiteBaseURL, s.AdminEmail, s.UpdatedAt)
	if err != nil {
		return err
	}

	if r.redis != nil {
		r.redis.Del(ctx, settingsCacheKey)
	}
	return nil
}
