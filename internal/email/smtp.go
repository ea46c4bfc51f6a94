package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"leadflow_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender renders the team templates and delivers them with go-mail.
// A new connection is dialled per message; alert volume is low.
type SMTPSender struct {
	host     string
	fromName string
	fromAddr string
	options  []gomail.Option
}

// NewSender returns an SMTPSender when SMTP_HOST is set, NoopSender otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}

	options := []gomail.Option{
		gomail.WithPort(cfg.GetSMTPPort()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
		// Some relays publish AAAA records they do not listen on.
		gomail.WithDialContextFunc(func(ctx context.Context, _ string, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp4", addr)
		}),
	}
	if user := cfg.GetSMTPUsername(); user != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(user),
			gomail.WithPassword(cfg.GetSMTPPassword()),
		)
	}

	return &SMTPSender{
		host:     cfg.GetSMTPHost(),
		fromName: cfg.GetSMTPFromName(),
		fromAddr: cfg.GetSMTPFromAddress(),
		options:  options,
	}
}

func (s *SMTPSender) SendSLAAlert(ctx context.Context, toEmail string, alert SLAAlert) error {
	data := slaAlertEmailData{
		baseEmailData: cta("First response overdue", "Open lead", alert.ContactURL),
		SLAAlert:      alert,
	}
	return s.deliver(ctx, toEmail, fmt.Sprintf(subjectSLAAlertFmt, alert.ContactName), "sla_alert.html", data)
}

func (s *SMTPSender) SendLeadAssigned(ctx context.Context, toEmail string, assigned LeadAssigned) error {
	data := leadAssignedEmailData{
		baseEmailData: cta("New lead assigned", "Open lead", assigned.ContactURL),
		LeadAssigned:  assigned,
	}
	return s.deliver(ctx, toEmail, fmt.Sprintf(subjectLeadAssignedFmt, assigned.ContactName), "lead_assigned.html", data)
}

func (s *SMTPSender) SendDealWon(ctx context.Context, toEmail string, won DealWon) error {
	data := dealWonEmailData{
		baseEmailData: cta("Deal won", "Open contact", won.ContactURL),
		DealWon:       won,
	}
	return s.deliver(ctx, toEmail, fmt.Sprintf(subjectDealWonFmt, won.ContactName), "deal_won.html", data)
}

func (s *SMTPSender) deliver(ctx context.Context, to, subject, templateName string, data any) error {
	html, err := renderEmailTemplate(templateName, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddr); err != nil {
		return fmt.Errorf("email: sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("email: recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(s.host, s.options...)
	if err != nil {
		return fmt.Errorf("email: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: deliver %s: %w", templateName, err)
	}
	return nil
}

// cta builds the shared header and button block; the heading doubles as title.
func cta(heading, label, url string) baseEmailData {
	return baseEmailData{Title: heading, Heading: heading, CTALabel: label, CTAURL: url}
}
