package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "http://localhost:5173", expected: "http://localhost:5173", ok: true},
		{input: "https://Chat.Example.com/", expected: "https://chat.example.com", ok: true},
		{input: "HTTPS://chat.example.com/app", expected: "https://chat.example.com", ok: true},
		{input: "chat.example.com", ok: false},
		{input: "://broken", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := normalizeOrigin(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{
		"http://localhost:5173",
		" https://chat.example.com/ ",
		"not-an-origin",
		"",
	}, zap.NewNop())

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "exact match", origin: "http://localhost:5173", allowed: true},
		{name: "trailing slash normalized", origin: "https://chat.example.com", allowed: true},
		{name: "case insensitive host", origin: "https://CHAT.example.com", allowed: true},
		{name: "missing origin", origin: "", allowed: true},
		{name: "other port", origin: "http://localhost:5174", allowed: false},
		{name: "scheme mismatch", origin: "http://chat.example.com", allowed: false},
		{name: "garbage", origin: "null", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.allowed, policy.check(req))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, zap.NewNop())

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example.org")
	assert.True(t, policy.isAllowed(req))
}

func TestOriginPolicyEmpty(t *testing.T) {
	policy := newOriginPolicy(nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	assert.False(t, policy.isAllowed(req))
}
