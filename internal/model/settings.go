package model

import "time"

// DelayUnit qualifies the candidature response delay.
type DelayUnit string

const (
	DelayDays    DelayUnit = "days"
	DelayHours   DelayUnit = "hours"
	DelayMinutes DelayUnit = "minutes"
)

// Settings is the persisted back-office configuration consumed by the
// scheduled jobs. It is read as a snapshot: values captured at scheduling time
// are stored on the entity and never re-read for already-scheduled work.
type Settings struct {
	ResponseDelayValue int       `json:"response_delay_value"`
	ResponseDelayUnit  DelayUnit `json:"response_delay_unit"`

	// InvitationBusinessDay is the Nth business day of the month on which
	// payment invitations go out.
	InvitationBusinessDay int `json:"invitation_business_day"`
	// ReminderDays are calendar days of the month on which unpaid obligations
	// are reminded.
	ReminderDays []int `json:"reminder_days"`

	TokenTTLHours int `json:"token_ttl_hours"`

	CandidatureJobEnabled bool `json:"candidature_job_enabled"`
	ContractJobEnabled    bool `json:"contract_job_enabled"`
	RentJobEnabled        bool `json:"rent_job_enabled"`

	SiteBaseURL string `json:"site_base_url"`
	AdminEmail  string `json:"admin_email"`

	UpdatedAt time.Time `json:"updated_at"`
}

// JobRunStatus is the state of one batch invocation's run record.
type JobRunStatus string

const (
	JobRunning   JobRunStatus = "running"
	JobCompleted JobRunStatus = "completed"
	JobFailed    JobRunStatus = "failed"
)

// JobRun represents the job_runs table. The partial unique index on running
// rows is what prevents two overlapping invocations of the same job.
type JobRun struct {
	ID        int64        `json:"id"`
	JobName   string       `json:"job_name"`
	Status    JobRunStatus `json:"status"`
	Selected  int          `json:"selected"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}
