// Package email renders and delivers the alert e-mails sent to the sales team.
package email

import "context"

// Sender delivers team e-mails.
type Sender interface {
	SendSLAAlert(ctx context.Context, toEmail string, alert SLAAlert) error
	SendLeadAssigned(ctx context.Context, toEmail string, assigned LeadAssigned) error
	SendDealWon(ctx context.Context, toEmail string, won DealWon) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendSLAAlert(context.Context, string, SLAAlert) error         { return nil }
func (NoopSender) SendLeadAssigned(context.Context, string, LeadAssigned) error { return nil }
func (NoopSender) SendDealWon(context.Context, string, DealWon) error           { return nil }

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
