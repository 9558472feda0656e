package daemon

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// Notifier is told about critical alerts that were not active on the
// previous poll.
type Notifier interface {
	Notify(result model.FinancialHealthResult, alerts []model.HealthAlert) error
}

// SMTPConfig configures EmailNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends critical alerts by email.
type EmailNotifier struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewEmailNotifier returns a notifier that mails cfg.To through cfg.Host.
func NewEmailNotifier(cfg SMTPConfig) (*EmailNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("smtp from and to addresses are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}, nil
}

// Notify sends one message listing every alert for the household.
func (n *EmailNotifier) Notify(result model.FinancialHealthResult, alerts []model.HealthAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	e := buildAlertEmail(n.cfg, result, alerts)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(e, addr, auth); err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}
	return nil
}

func buildAlertEmail(cfg SMTPConfig, result model.FinancialHealthResult, alerts []model.HealthAlert) *email.Email {
	e := email.NewEmail()
	e.From = cfg.From
	e.To = cfg.To
	e.Subject = fmt.Sprintf("[cashpulse] %s: %d critical alert(s), score %d (%s)",
		result.HouseholdID, len(alerts), result.Score, result.Classification)

	var b strings.Builder
	fmt.Fprintf(&b, "Household %s scored %d/100 (%s).\n\n", result.HouseholdID, result.Score, result.Classification)
	for _, a := range alerts {
		fmt.Fprintf(&b, "* %s\n  %s\n  Next step: %s\n\n", a.Title, a.Description, a.Action)
	}
	if p := result.FutureProjection; p.WillGoNegative && p.MonthsUntilNegative != nil {
		fmt.Fprintf(&b, "Projected balance turns negative in month %d.\n", *p.MonthsUntilNegative)
	}
	e.Text = []byte(b.String())
	return e
}
