// Package logger provides logging utilities for the application.
package logger

import (
	"context"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LogError logs a detailed error with contextual information.
// If ctx is a gin.Context, request metadata (request ID, path, method,
// masked client IP) is attached automatically.
func LogError(ctx context.Context, err error, message string, metadata map[string]interface{}) {
	log := GetLogger()

	fields := []zap.Field{
		zap.Error(err),
		zap.String("error_type", getErrorType(err)),
	}

	// Extract additional context for HTTP requests
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if requestID := ginCtx.GetString("request_id"); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		fields = append(fields,
			zap.String("path", ginCtx.Request.URL.Path),
			zap.String("method", ginCtx.Request.Method),
			zap.String("client_ip", MaskIP(ginCtx.ClientIP())),
		)
		if ginCtx.Writer.Status() != 0 {
			fields = append(fields, zap.Int("status_code", ginCtx.Writer.Status()))
		}
	}

	// Add stack trace in non-production environments
	if os.Getenv("ENVIRONMENT") != "production" {
		fields = append(fields, zap.String("stack_trace", getStackTrace(2)))
	}

	for k, v := range metadata {
		fields = append(fields, zap.Any(k, v))
	}

	log.Desugar().Error(message, fields...)
}

// LogHTTPError logs an HTTP request error with context from a gin.Context.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	metadata := map[string]interface{}{
		"status_code": statusCode,
		"user_agent":  c.Request.UserAgent(),
	}
	LogError(c, err, message, metadata)
}

// LogSecurityEvent records a rejected request that looks adversarial
// (invalid origin, rate-limit breach). Kept at warn level: these are expected
// in normal operation and are not application bugs.
func LogSecurityEvent(c *gin.Context, event string, detail string) {
	GetLogger().Warnw("Security event",
		"event", event,
		"detail", detail,
		"request_id", c.GetString("request_id"),
		"path", c.Request.URL.Path,
		"client_ip", MaskIP(c.ClientIP()),
		"user_agent", c.Request.UserAgent(),
	)
}

// getErrorType extracts a clean type name from an error.
func getErrorType(err error) string {
	if err == nil {
		return ""
	}

	errType := reflect.TypeOf(err).String()
	parts := strings.Split(errType, ".")
	if len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return errType
}

// getStackTrace captures a stack trace starting from the specified skip level.
func getStackTrace(skip int) string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "runtime.") {
			builder.WriteString(frame.Function)
			builder.WriteString("\n\t")
			builder.WriteString(frame.File)
			builder.WriteString(":")
			builder.WriteString(strconv.Itoa(frame.Line))
			builder.WriteString("\n")
		}
		if !more {
			break
		}
	}

	return builder.String()
}
