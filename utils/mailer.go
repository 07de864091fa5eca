package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"projectclaim/config"
)

// Mailer sends claim lifecycle notifications. Delivery is best effort: a
// failed send is logged and never fails the request that triggered it.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether SMTP is configured at all.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

type claimEmailData struct {
	Subject      string
	ProjectTitle string
	Students     []string
	Decision     string
	Year         int
}

// Embedded email templates
var emailTemplates = map[string]string{
	"claim_submitted": `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <h2>New claim on "{{.ProjectTitle}}"</h2>
    <p>The following students submitted a claim and are waiting for your review:</p>
    <ul>{{range .Students}}<li>{{.}}</li>{{end}}</ul>
    <p style="font-size: 12px; color: #7f8c8d;">&copy; {{.Year}} Project Claiming</p>
</body>
</html>`,

	"claim_decided": `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <h2>Your claim on "{{.ProjectTitle}}" was {{.Decision}}</h2>
    {{if eq .Decision "approved"}}<p>The project is now yours. File exchange is unlocked.</p>
    {{else}}<p>You are free to claim another available project.</p>{{end}}
    <p style="font-size: 12px; color: #7f8c8d;">&copy; {{.Year}} Project Claiming</p>
</body>
</html>`,
}

// NotifyClaimSubmitted mails the owning professor about a new pending claim.
func (m *Mailer) NotifyClaimSubmitted(professorEmail, projectTitle string, studentNames []string) {
	m.send([]string{professorEmail}, claimEmailData{
		Subject:      fmt.Sprintf("New claim on %q", projectTitle),
		ProjectTitle: projectTitle,
		Students:     studentNames,
	}, "claim_submitted")
}

// NotifyClaimDecided mails every claiming student the professor's decision.
func (m *Mailer) NotifyClaimDecided(studentEmails []string, projectTitle, decision string) {
	m.send(studentEmails, claimEmailData{
		Subject:      fmt.Sprintf("Claim on %q %s", projectTitle, decision),
		ProjectTitle: projectTitle,
		Decision:     decision,
	}, "claim_decided")
}

func (m *Mailer) send(to []string, data claimEmailData, templateName string) {
	if !m.Enabled() || len(to) == 0 {
		return
	}
	data.Year = time.Now().Year()

	tmpl, err := template.New(templateName).Parse(emailTemplates[templateName])
	if err != nil {
		LogError("mailer_template", err, map[string]interface{}{"template": templateName})
		return
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		LogError("mailer_template", err, map[string]interface{}{"template": templateName})
		return
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		LogError("mailer_send", err, map[string]interface{}{
			"template":   templateName,
			"recipients": len(to),
		})
		return
	}

	LogEvent("notification_sent", map[string]interface{}{
		"template":   templateName,
		"recipients": len(to),
	})
}
