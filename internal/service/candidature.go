package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/calendar"
	"github.com/maison-solution/rental-scheduler-service/internal/mail"
	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// maxOccupants is the occupancy ceiling applied during eligibility checks.
const maxOccupants = 4

// CandidatureService evaluates rental applications at submission and sends
// the decision email on a deferred schedule.
type CandidatureService struct {
	repo     CandidatureRepository
	settings SettingsRepository
	mailer   mail.Mailer
	now      func() time.Time
}

func NewCandidatureService(repo CandidatureRepository, settings SettingsRepository, mailer mail.Mailer) *CandidatureService {
	return &CandidatureService{
		repo:     repo,
		settings: settings,
		mailer:   mailer,
		now:      time.Now,
	}
}

// EvaluateEligibility applies the fixed rule set. Every criterion is checked
// independently; the candidature is accepted iff none fails and the reasons
// of all failing criteria are concatenated.
func EvaluateEligibility(c *model.Candidature) (model.CandidatureStatus, string) {
	var reasons []string

	if c.IncomeBracket == model.IncomeBelow1500 {
		reasons = append(reasons, "declared income below the required bracket")
	}
	if c.EmploymentStatus == model.EmploymentUnemployed {
		reasons = append(reasons, "no stable employment")
	}
	if c.OnTrialPeriod && !c.HasGuarantee {
		reasons = append(reasons, "a guarantee is required during a trial period")
	}
	if c.IncomeType == model.IncomeIrregular && !c.HasGuarantee {
		reasons = append(reasons, "a guarantee is required for irregular income")
	}
	if c.OccupantCount > maxOccupants {
		reasons = append(reasons, fmt.Sprintf("occupant count exceeds the maximum of %d", maxOccupants))
	}

	if len(reasons) > 0 {
		return model.CandidatureRejected, strings.Join(reasons, "; ")
	}
	return model.CandidatureAccepted, ""
}

// ScheduleResponse computes the deferred response instant from the submission
// time and the delay configuration in force at that moment. The days unit
// walks business days; hours and minutes are flat offsets.
func ScheduleResponse(submittedAt time.Time, delayValue int, delayUnit model.DelayUnit) time.Time {
	switch delayUnit {
	case model.DelayHours:
		return submittedAt.Add(time.Duration(delayValue) * time.Hour)
	case model.DelayMinutes:
		return submittedAt.Add(time.Duration(delayValue) * time.Minute)
	default:
		return calendar.AddBusinessDays(submittedAt, delayValue)
	}
}

// Submit evaluates the application, captures the delay configuration as a
// one-time snapshot and persists it. No email goes out here; communication is
// deferred to the scheduled run. The stored response timestamp is immutable:
// later configuration changes never shift it.
func (s *CandidatureService) Submit(ctx context.Context, c *model.Candidature) error {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	c.SubmittedAt = now
	c.Status, c.RejectionReason = EvaluateEligibility(c)
	c.AutoResponseState = model.ResponseAwaiting

	scheduled := ScheduleResponse(now, cfg.ResponseDelayValue, cfg.ResponseDelayUnit)
	c.ScheduledResponseAt = &scheduled

	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	log.Info().
		Str("candidature_id", c.ID.String()).
		Str("status", string(c.Status)).
		Time("scheduled_response_at", scheduled).
		Msg("Candidature submitted, response deferred")
	return nil
}

// Name implements BatchJob.
func (s *CandidatureService) Name() string { return "candidature-responder" }

// Enabled implements BatchJob.
func (s *CandidatureService) Enabled(cfg *model.Settings) bool { return cfg.CandidatureJobEnabled }

// SelectDue returns applications whose deferred response is due. Rows with a
// stored timestamp use it as-is; legacy rows predating the stored-timestamp
// feature fall back to submission time plus the current configuration.
func (s *CandidatureService) SelectDue(ctx context.Context, now time.Time, limit int) ([]WorkItem, error) {
	rows, err := s.repo.SelectAwaitingResponse(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var items []WorkItem
	for _, c := range rows {
		due := false
		if c.ScheduledResponseAt != nil {
			due = !now.Before(*c.ScheduledResponseAt)
		} else {
			fallback := ScheduleResponse(c.SubmittedAt, cfg.ResponseDelayValue, cfg.ResponseDelayUnit)
			due = !now.Before(fallback)
		}
		if due {
			items = append(items, WorkItem{ID: c.ID, Kind: string(c.Status)})
		}
	}
	return items, nil
}

// Process sends the decision email for one due application. The response
// state is persisted only after the email was accepted by the provider, so a
// failed dispatch keeps the application selectable on the next run.
func (s *CandidatureService) Process(ctx context.Context, item WorkItem) error {
	c, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("candidature %s: %w", item.ID, ErrNotFound)
	}
	if c.AutoResponseState != model.ResponseAwaiting {
		// Already handled by a previous run; nothing to do.
		return nil
	}

	template := mail.TemplateCandidatureAccepted
	sentState := model.ResponseSentAccept
	vars := map[string]string{
		"applicant_name": c.ApplicantName,
		"reference":      c.ID.String(),
	}
	if c.Status == model.CandidatureRejected {
		template = mail.TemplateCandidatureRejected
		sentState = model.ResponseSentReject
		vars["reason"] = c.RejectionReason
	}

	if err := s.mailer.Send(ctx, template, c.ContactEmail, vars, false); err != nil {
		return fmt.Errorf("candidature %s: send response: %w", c.ID, err)
	}

	c.AutoResponseState = sentState
	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("candidature %s: persist response state: %w", c.ID, err)
	}
	return nil
}
