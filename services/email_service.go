package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// EmailService sends contact-form emails through Resend: an operator
// notification and a submitter confirmation. Both are best-effort from the
// pipeline's point of view; failures are logged, never surfaced to the
// submitter. Without an API key (development) sends are logged instead.
type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *EmailMetrics
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service",
		"from", cfg.FromAddress, "to", cfg.ToAddress, "configured", cfg.ResendAPIKey != "")

	var client *resend.Client
	if cfg.ResendAPIKey != "" {
		client = resend.NewClient(cfg.ResendAPIKey)
	}

	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blocknexus_email_send_duration_seconds",
			Help:    "Time taken to send contact-form emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		client:  client,
		metrics: metrics,
	}
}

// SendNotification emails the operator about a validated submission.
// Replies go directly to the submitter via the Reply-To header.
func (s *EmailService) SendNotification(ctx context.Context, sub *types.ContactSubmission) error {
	subject := "New Contact Form Submission"
	if sub.Company != "" {
		subject = fmt.Sprintf("New Contact Form Submission - %s", sub.Company)
	}

	html, err := renderTemplate(notificationTemplate, sub)
	if err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to render notification template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{s.config.ToAddress},
		ReplyTo: sub.Email,
		Subject: subject,
		Html:    html,
		Text:    notificationText(sub),
	}

	return s.send(ctx, params)
}

// SendConfirmation emails the submitter an acknowledgment.
func (s *EmailService) SendConfirmation(ctx context.Context, sub *types.ContactSubmission) error {
	html, err := renderTemplate(confirmationTemplate, sub)
	if err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to render confirmation template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{sub.Email},
		Subject: "Thank you for contacting Block Nexus",
		Html:    html,
		Text:    confirmationText(sub),
	}

	return s.send(ctx, params)
}

func (s *EmailService) send(ctx context.Context, params *resend.SendEmailRequest) error {
	log := logger.GetLogger()

	if s.client == nil {
		log.Infow("Email service not configured, logging instead of sending",
			"to", maskRecipients(params.To), "subject", params.Subject)
		return nil
	}

	startTime := time.Now()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	timeout := time.Duration(s.config.TimeoutSeconds) * time.Second
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.client.Emails.SendWithContext(sendCtx, params)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"to", maskRecipients(params.To),
			"subject", params.Subject)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Email sent",
		"to", maskRecipients(params.To),
		"subject", params.Subject)

	return nil
}

func renderTemplate(tmpl *template.Template, sub *types.ContactSubmission) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, sub); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func maskRecipients(to []string) []string {
	masked := make([]string, len(to))
	for i, addr := range to {
		masked[i] = logger.MaskEmail(addr)
	}
	return masked
}

func notificationText(sub *types.ContactSubmission) string {
	var buf bytes.Buffer
	buf.WriteString("New Contact Form Submission\n\n")
	buf.WriteString("Name: " + sub.Name + "\n")
	buf.WriteString("Email: " + sub.Email + "\n")
	if sub.Company != "" {
		buf.WriteString("Company: " + sub.Company + "\n")
	}
	if sub.Phone != "" {
		buf.WriteString("Phone: " + sub.Phone + "\n")
	}
	if sub.Service != "" {
		buf.WriteString("Service Interest: " + sub.Service + "\n")
	}
	buf.WriteString("\nMessage:\n" + sub.Message + "\n")
	buf.WriteString("\n---\nThis email was sent from the Block Nexus contact form.\n")
	return buf.String()
}

func confirmationText(sub *types.ContactSubmission) string {
	var buf bytes.Buffer
	buf.WriteString("Thank you for contacting Block Nexus\n\n")
	buf.WriteString("Hi " + sub.Name + ",\n\n")
	buf.WriteString("We've received your message and will get back to you as soon as possible. Our team typically responds within 24-48 hours.\n")
	if sub.Service != "" {
		buf.WriteString("\nService Interest: " + sub.Service + "\n")
	}
	buf.WriteString("\nBest regards,\nThe Block Nexus Team\n")
	buf.WriteString("\n---\nThis is an automated confirmation email. Please do not reply to this message.\n")
	return buf.String()
}

// Template constants. html/template escaping keeps submitted text inert
// inside the markup.
var notificationTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>New Contact Form Submission</title>
</head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #0ea5e9; border-bottom: 2px solid #0ea5e9; padding-bottom: 10px;">
        New Contact Form Submission
    </h2>
    <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <h3 style="margin-top: 0; color: #1e293b;">Contact Information</h3>
        <p><strong>Name:</strong> {{.Name}}</p>
        <p><strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
        {{if .Company}}<p><strong>Company:</strong> {{.Company}}</p>{{end}}
        {{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
        {{if .Service}}<p><strong>Service Interest:</strong> {{.Service}}</p>{{end}}
    </div>
    <div style="background-color: #ffffff; padding: 20px; border: 1px solid #e2e8f0; border-radius: 8px; margin: 20px 0;">
        <h3 style="margin-top: 0; color: #1e293b;">Message</h3>
        <p style="white-space: pre-wrap;">{{.Message}}</p>
    </div>
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e2e8f0; font-size: 12px; color: #64748b;">
        <p>This email was sent from the Block Nexus contact form.</p>
        <p>Reply directly to this email to respond to {{.Name}}.</p>
    </div>
</body>
</html>`))

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Thank you for contacting Block Nexus</title>
</head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #0ea5e9; border-bottom: 2px solid #0ea5e9; padding-bottom: 10px;">
        Thank you for contacting Block Nexus
    </h2>
    <p>Hi {{.Name}},</p>
    <p>We've received your message and will get back to you as soon as possible. Our team typically responds within 24-48 hours.</p>
    {{if .Service}}
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 8px; margin: 20px 0;">
        <p style="margin: 0;"><strong>Service Interest:</strong> {{.Service}}</p>
    </div>
    {{end}}
    <p>If you have any urgent questions, please feel free to reach out directly at <a href="mailto:contact@blocknexus.tech">contact@blocknexus.tech</a>.</p>
    <p>Best regards,<br>The Block Nexus Team</p>
    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e2e8f0; font-size: 12px; color: #64748b;">
        <p>This is an automated confirmation email. Please do not reply to this message.</p>
    </div>
</body>
</html>`))
