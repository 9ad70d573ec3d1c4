// Package mail is the outbound email boundary. Templates live with the
// provider; the scheduler only supplies a template identifier and the
// substitution variables.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/monitoring"
)

// Template identifiers known to the provider.
const (
	TemplateCandidatureAccepted = "candidature-accepted"
	TemplateCandidatureRejected = "candidature-rejected"
	TemplateRentInvitation      = "rent-invitation"
	TemplateRentReminder        = "rent-reminder"
	TemplateSignatureRequest    = "signature-request"
	TemplateSignatureExpired    = "signature-expired"
)

// ErrMissingCredentials is returned when the provider configuration is
// incomplete. Callers treat it as a configuration error and abort the run.
var ErrMissingCredentials = errors.New("mail: missing provider credentials")

// Mailer dispatches one templated email.
type Mailer interface {
	Send(ctx context.Context, templateID, recipient string, vars map[string]string, ccAdmins bool) error
}

// Config holds the transactional-mail provider settings.
type Config struct {
	BaseURL    string
	APIKey     string
	FromName   string
	FromEmail  string
	AdminEmail string
}

// Client posts send requests to the provider's HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates the provider configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type sendRequest struct {
	TemplateID string            `json:"template_id"`
	To         string            `json:"to"`
	Cc         []string          `json:"cc,omitempty"`
	FromName   string            `json:"from_name"`
	FromEmail  string            `json:"from_email"`
	Variables  map[string]string `json:"variables"`
}

// Send dispatches one templated email. Provider rejections and transport
// failures are returned as ordinary errors so the caller can leave the work
// item retryable.
func (c *Client) Send(ctx context.Context, templateID, recipient string, vars map[string]string, ccAdmins bool) error {
	payload := sendRequest{
		TemplateID: templateID,
		To:         recipient,
		FromName:   c.cfg.FromName,
		FromEmail:  c.cfg.FromEmail,
		Variables:  vars,
	}
	if ccAdmins && c.cfg.AdminEmail != "" {
		payload.Cc = []string{c.cfg.AdminEmail}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.EmailsSent.WithLabelValues(templateID, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		monitoring.EmailsSent.WithLabelValues(templateID, "rejected").Inc()
		return fmt.Errorf("mail: provider returned %d for template %s", resp.StatusCode, templateID)
	}

	monitoring.EmailsSent.WithLabelValues(templateID, "sent").Inc()
	log.Debug().Str("template", templateID).Msg("Email dispatched")
	return nil
}
