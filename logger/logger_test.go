package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveString(t *testing.T) {
	assert.Equal(t, "", MaskSensitiveString("", 2, 2))
	assert.Equal(t, "******", MaskSensitiveString("secret", 2, 2))
	assert.Equal(t, "ab...yz", MaskSensitiveString("abcdefghixyz", 2, 2))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"", ""},
		{"ada.lovelace@example.com", "ad...e@example.com"},
		{"abc@example.com", "***@example.com"},
		{"not-an-email", "no...il"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MaskEmail(tt.email), "email %q", tt.email)
	}
}

func TestMaskIP(t *testing.T) {
	assert.Equal(t, "", MaskIP(""))
	assert.Equal(t, "192.168.x.x", MaskIP("192.168.1.42"))
	masked := MaskIP("2001:db8::1")
	assert.NotEqual(t, "2001:db8::1", masked)
	assert.Contains(t, masked, "2001")
}
