package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginGuard(t *testing.T) {
	cfg := testConfig()
	r := newTestRouter(cfg, OriginGuard(cfg.Server.AllowedOrigins))

	tests := []struct {
		name       string
		origin     string
		referer    string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "no origin and no referer",
			wantStatus: http.StatusForbidden,
			wantDetail: "Origin or Referer header required",
		},
		{
			name:       "allowed origin",
			origin:     "https://blocknexus.tech",
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed localhost origin",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "foreign origin",
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
			wantDetail: "Invalid origin",
		},
		{
			name:       "referer with path under allowed origin",
			referer:    "https://blocknexus.tech/contact?utm=1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "referer on suffix host does not match",
			referer:    "https://blocknexus.tech.evil.com/contact",
			wantStatus: http.StatusForbidden,
			wantDetail: "Invalid referer",
		},
		{
			name:       "referer with wrong scheme",
			referer:    "http://blocknexus.tech/contact",
			wantStatus: http.StatusForbidden,
			wantDetail: "Invalid referer",
		},
		{
			name:       "unparseable referer",
			referer:    "not a url",
			wantStatus: http.StatusForbidden,
			wantDetail: "Invalid referer",
		},
		{
			name:       "foreign origin with allowed referer still passes",
			origin:     "https://evil.example.com",
			referer:    "https://blocknexus.tech/contact",
			wantStatus: http.StatusOK,
		},
		{
			name:       "foreign origin and foreign referer reports origin",
			origin:     "https://evil.example.com",
			referer:    "https://evil.example.com/page",
			wantStatus: http.StatusForbidden,
			wantDetail: "Invalid origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/contact", strings.NewReader("{}"))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				body := decodeBody(t, w)
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
		})
	}
}
