package middleware

import (
	"io"
	"time"

	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/gin-gonic/gin"
)

// RawBodyKey is the gin context key under which BodyGuard stores the fully
// read request body for the handler.
const RawBodyKey = "raw_body"

// ContentTypeGuard rejects submissions that do not declare a JSON media type
// before the body is read.
func ContentTypeGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != "application/json" {
			_ = c.Error(apperrors.UnsupportedMediaType(c.ContentType()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// BodyGuard enforces the body size limits and reads the body under a
// timeout.
//
// The declared Content-Length is checked first so oversized payloads are
// rejected without reading a byte; the actual size is re-checked after the
// read because the header can be spoofed or absent. On timeout the in-flight
// read is abandoned and the request fails with a client-facing error.
func BodyGuard(maxBytes int64, readTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			_ = c.Error(apperrors.PayloadTooLarge(maxBytes))
			c.Abort()
			return
		}

		type readResult struct {
			data []byte
			err  error
		}
		resultCh := make(chan readResult, 1)
		go func() {
			// Read one byte past the limit so spoofed length headers are
			// detectable without buffering an unbounded body.
			data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
			resultCh <- readResult{data: data, err: err}
		}()

		timer := time.NewTimer(readTimeout)
		defer timer.Stop()

		var body []byte
		select {
		case res := <-resultCh:
			if res.err != nil {
				_ = c.Error(apperrors.Wrap(res.err, apperrors.ValidationError, "Failed to read request body"))
				c.Abort()
				return
			}
			body = res.data
		case <-timer.C:
			_ = c.Error(apperrors.ValidationFailed("Request timeout", "Request body was not received in time"))
			c.Abort()
			return
		}

		if int64(len(body)) > maxBytes {
			_ = c.Error(apperrors.PayloadTooLarge(maxBytes))
			c.Abort()
			return
		}

		c.Set(RawBodyKey, body)
		c.Next()
	}
}
