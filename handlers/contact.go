package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/middleware"
	"github.com/block-nexus/blocknexus-site/sanitize"
	"github.com/block-nexus/blocknexus-site/types"
	"github.com/block-nexus/blocknexus-site/validation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// confirmationTimeout bounds the detached confirmation-email send so the
// goroutine cannot linger past shutdown.
const confirmationTimeout = 30 * time.Second

// EmailNotifier is the email collaborator consumed by the contact pipeline.
// Both sends may fail; the pipeline logs and never propagates.
type EmailNotifier interface {
	SendNotification(ctx context.Context, sub *types.ContactSubmission) error
	SendConfirmation(ctx context.Context, sub *types.ContactSubmission) error
}

// ContactHandler runs the tail of the submission pipeline: JSON parse, shape
// check, per-field type check, sanitization, schema validation and the
// best-effort email notifications. The guards (origin, content type, rate
// limit, body size) run as route middleware before it.
type ContactHandler struct {
	validator *validation.Validator
	email     EmailNotifier

	submissions prometheus.Counter
	rejected    prometheus.Counter

	// confirmations tracks detached confirmation sends for clean shutdown.
	confirmations sync.WaitGroup
}

func NewContactHandler(v *validation.Validator, email EmailNotifier) *ContactHandler {
	return NewContactHandlerWithRegistry(v, email, prometheus.DefaultRegisterer)
}

func NewContactHandlerWithRegistry(v *validation.Validator, email EmailNotifier, reg prometheus.Registerer) *ContactHandler {
	h := &ContactHandler{
		validator: v,
		email:     email,
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_contact_submissions_total",
			Help: "Total number of accepted contact-form submissions",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_contact_rejected_total",
			Help: "Total number of contact-form submissions rejected by validation",
		}),
	}
	reg.MustRegister(h.submissions)
	reg.MustRegister(h.rejected)
	return h
}

// contactFields are the submission fields read from the parsed body, in wire
// order. Consent is handled apart: it is compared literally, never sanitized.
var contactFields = []string{"name", "email", "message", "company", "phone", "service"}

// Submit handles POST /contact.
func (h *ContactHandler) Submit(c *gin.Context) {
	log := logger.GetLogger()

	raw, exists := c.Get(middleware.RawBodyKey)
	if !exists {
		_ = c.Error(apperrors.InternalServerError("Request body unavailable"))
		return
	}
	body, ok := raw.([]byte)
	if !ok {
		_ = c.Error(apperrors.InternalServerError("Request body unavailable"))
		return
	}

	// Parse. A parse failure is a client error, never a fault.
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		h.rejected.Inc()
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", "Invalid JSON in request body"))
		return
	}

	// Shape: the untrusted value must be a plain object before any field is
	// touched. Arrays, null and primitives are rejected here.
	obj, ok := parsed.(map[string]interface{})
	if !ok {
		h.rejected.Inc()
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", "Request body must be a JSON object"))
		return
	}

	values, typeErrors := stringFields(obj)
	if len(typeErrors) > 0 {
		h.rejected.Inc()
		_ = c.Error(apperrors.SchemaValidationFailed(typeErrors))
		return
	}

	// Sanitize every free-text field independently. An oversized field is a
	// bounded rejection; the raw payload is never echoed back.
	for _, field := range contactFields {
		clean, err := sanitize.Clean(values[field])
		if err != nil {
			h.rejected.Inc()
			_ = c.Error(apperrors.SchemaValidationFailed([]apperrors.FieldError{
				{Field: field, Message: "Input exceeds maximum allowed length"},
			}))
			return
		}
		values[field] = clean
	}

	sub := &types.ContactSubmission{
		Name:    values["name"],
		Email:   values["email"],
		Message: values["message"],
		Company: values["company"],
		Phone:   values["phone"],
		Service: values["service"],
		Consent: values["consent"],
	}

	// Schema validation: all violations reported together, the submission
	// is accepted or rejected as a whole.
	if fieldErrors := h.validator.Validate(sub); len(fieldErrors) > 0 {
		h.rejected.Inc()
		_ = c.Error(apperrors.SchemaValidationFailed(fieldErrors))
		return
	}

	// Operator notification: awaited but non-fatal. The submitter's
	// experience must not depend on the notification channel.
	if err := h.email.SendNotification(c.Request.Context(), sub); err != nil {
		log.Errorw("Operator notification failed",
			"error", err,
			"request_id", c.GetString(middleware.RequestIDKey))
	}

	// Confirmation: explicit detached task with its own error channel (the
	// log). The response never waits for it.
	subCopy := *sub
	h.confirmations.Add(1)
	requestID := c.GetString(middleware.RequestIDKey)
	go func() {
		defer h.confirmations.Done()
		ctx, cancel := context.WithTimeout(context.Background(), confirmationTimeout)
		defer cancel()
		if err := h.email.SendConfirmation(ctx, &subCopy); err != nil {
			log.Errorw("Confirmation email failed",
				"error", err,
				"request_id", requestID)
		}
	}()

	h.submissions.Inc()
	log.Infow("Contact form submission received",
		"request_id", requestID,
		"name", sub.Name,
		"email", logger.MaskEmail(sub.Email),
		"service", sub.Service)

	c.JSON(200, gin.H{
		"success": true,
		"message": "Thank you! We will be in touch soon.",
	})
}

// MethodNotAllowed handles GET /contact (and any other non-POST method).
func (h *ContactHandler) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", "POST")
	_ = c.Error(apperrors.MethodNotAllowed(c.Request.Method))
}

// Wait blocks until all detached confirmation sends have finished. Called
// during graceful shutdown.
func (h *ContactHandler) Wait() {
	h.confirmations.Wait()
}

// stringFields extracts the known submission fields from the untrusted
// object, requiring each present field to be a JSON string. Unknown fields
// are ignored; missing fields default to empty and are left to the schema
// validator.
func stringFields(obj map[string]interface{}) (map[string]string, []apperrors.FieldError) {
	values := make(map[string]string, len(contactFields)+1)
	var typeErrors []apperrors.FieldError

	for _, field := range append(append([]string{}, contactFields...), "consent") {
		raw, present := obj[field]
		if !present {
			values[field] = ""
			continue
		}
		s, ok := raw.(string)
		if !ok {
			typeErrors = append(typeErrors, apperrors.FieldError{
				Field:   field,
				Message: "Must be a string",
			})
			continue
		}
		values[field] = s
	}

	return values, typeErrors
}
