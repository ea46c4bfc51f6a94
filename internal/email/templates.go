package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// SLAAlert describes a lead that breached the first response SLA.
type SLAAlert struct {
	ContactName string
	Email       string
	Phone       string
	Waiting     string
	CreatedAt   string
	ContactURL  string
}

// LeadAssigned tells a rep a lead was routed to them.
type LeadAssigned struct {
	AgentName     string
	ContactName   string
	PreviousOwner string
	ContactURL    string
}

// DealWon announces a closed deal.
type DealWon struct {
	ContactName string
	Value       string
	ContactURL  string
}

type slaAlertEmailData struct {
	baseEmailData
	SLAAlert
}

type leadAssignedEmailData struct {
	baseEmailData
	LeadAssigned
}

type dealWonEmailData struct {
	baseEmailData
	DealWon
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
