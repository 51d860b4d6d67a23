package services

import (
	"context"
	"os"
	"testing"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.IsTest = true
	logger.InitLogger()
	os.Exit(m.Run())
}

func testEmailConfig() *config.EmailConfig {
	return &config.EmailConfig{
		FromAddress:    "onboarding@resend.dev",
		FromName:       "Block Nexus",
		ToAddress:      "contact@blocknexus.tech",
		TimeoutSeconds: 10,
	}
}

func testSubmission() *types.ContactSubmission {
	return &types.ContactSubmission{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "Hello, I would like to discuss a project.",
		Company: "Analytical Engines Ltd",
		Service: "cybersecurity",
		Consent: "on",
	}
}

func TestSendWithoutAPIKeyLogsInsteadOfSending(t *testing.T) {
	svc := NewEmailServiceWithRegistry(testEmailConfig(), prometheus.NewRegistry())

	assert.NoError(t, svc.SendNotification(context.Background(), testSubmission()))
	assert.NoError(t, svc.SendConfirmation(context.Background(), testSubmission()))
}

func TestNotificationTemplateEscapesSubmittedText(t *testing.T) {
	sub := testSubmission()
	sub.Message = `alert("xss") & <other>`

	html, err := renderTemplate(notificationTemplate, sub)
	require.NoError(t, err)
	assert.Contains(t, html, "Ada Lovelace")
	assert.NotContains(t, html, "<other>")
	assert.Contains(t, html, "&lt;other&gt;")
}

func TestNotificationTextIncludesOptionalFields(t *testing.T) {
	text := notificationText(testSubmission())
	assert.Contains(t, text, "Name: Ada Lovelace")
	assert.Contains(t, text, "Company: Analytical Engines Ltd")
	assert.Contains(t, text, "Service Interest: cybersecurity")

	minimal := &types.ContactSubmission{Name: "Ada", Email: "ada@example.com", Message: "Hi there, hello."}
	text = notificationText(minimal)
	assert.NotContains(t, text, "Company:")
	assert.NotContains(t, text, "Phone:")
}

func TestConfirmationTextAddressesSubmitter(t *testing.T) {
	text := confirmationText(testSubmission())
	assert.Contains(t, text, "Hi Ada Lovelace,")
	assert.Contains(t, text, "Service Interest: cybersecurity")
}

func TestMaskRecipients(t *testing.T) {
	masked := maskRecipients([]string{"ada.lovelace@example.com"})
	require.Len(t, masked, 1)
	assert.NotContains(t, masked[0], "ada.lovelace")
	assert.Contains(t, masked[0], "@example.com")
}
