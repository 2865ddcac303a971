// Package mailer sends transactional email over SMTP. When SMTP is
// not configured the mailer logs and drops messages instead of
// failing, so development setups work without a mail server.
package mailer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mistreatedbee/Communityhub-server/pkg/config"
	"gopkg.in/gomail.v2"
)

type Mailer struct {
	cfg     config.SMTPConfig
	baseURL string
	logger  *slog.Logger
}

func New(cfg config.SMTPConfig, baseURL string, logger *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, baseURL: baseURL, logger: logger}
}

func (m *Mailer) SendInvitation(to, communityName, role, token string, expiresAt time.Time) error {
	if !m.cfg.Configured() {
		m.logger.Info("smtp not configured, skipping invitation email", "to", to, "community", communityName)
		return nil
	}

	acceptURL := fmt.Sprintf("%s/invitations/accept?token=%s", m.baseURL, token)
	body := fmt.Sprintf(
		`<p>You have been invited to join <b>%s</b> as %s.</p>`+
			`<p><a href="%s">Accept the invitation</a> before %s.</p>`,
		communityName, role, acceptURL, expiresAt.Format("January 2, 2006"),
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Invitation to join %s", communityName))
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return d.DialAndSend(msg)
}
