package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/block-nexus/blocknexus-site/config"
	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/gin-gonic/gin"
)

// problemTypeBase is the namespace for problem-details type URIs.
const problemTypeBase = "https://blocknexus.tech/problems/"

// ErrorHandler converts errors attached to the gin context into RFC 7807
// problem-details responses. Internal detail (raw errors, stack traces) is
// logged for operators and never serialized to the client; field-level
// validation detail is exposed only when verbose diagnostics are enabled.
func ErrorHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		appError, ok := err.(*apperrors.AppError)
		if !ok {
			appError = apperrors.InternalServerError("Internal server error")
			appError.Raw = err
		}
		status := appError.GetHTTPStatus()

		switch appError.Type {
		case apperrors.SecurityError:
			logger.LogSecurityEvent(c, "origin_rejected", appError.Detail)
		case apperrors.RateLimitError:
			logger.LogSecurityEvent(c, "rate_limited", appError.Detail)
		case apperrors.ServerError:
			logger.LogHTTPError(c, appError.Raw, status, "Unexpected server error")
		default:
			logger.LogHTTPError(c, err, status, fmt.Sprintf("%s error", appError.Type))
		}

		c.JSON(status, problemBody(c, cfg, appError, status))
	}
}

// problemBody builds the RFC 7807 response body for an AppError.
func problemBody(c *gin.Context, cfg *config.Config, appError *apperrors.AppError, status int) gin.H {
	body := gin.H{
		"type":      problemTypeBase + problemSlug(appError.Type),
		"title":     http.StatusText(status),
		"status":    status,
		"detail":    appError.Detail,
		"instance":  "urn:request:" + c.GetString(RequestIDKey),
		"requestId": c.GetString(RequestIDKey),
	}
	if appError.Detail == "" {
		body["detail"] = appError.Message
	}

	for k, v := range appError.Extensions {
		body[k] = v
	}

	// Field-level detail helps clients fix input, but it also maps out the
	// schema; only expose it when explicitly enabled.
	if len(appError.FieldErrors) > 0 && cfg.Server.VerboseErrors {
		fields := make(map[string]string, len(appError.FieldErrors))
		for _, fe := range appError.FieldErrors {
			fields[fe.Field] = fe.Message
		}
		body["errors"] = fields
	}

	return body
}

func problemSlug(t apperrors.ErrorType) string {
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", "-")
}
