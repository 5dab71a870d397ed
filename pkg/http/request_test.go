package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIPIgnoresHeadersFromUntrustedSource(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:4312"
	r.Header.Set("X-Forwarded-For", "10.0.0.99")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"192.168.0.0/16"}})

	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIPHonorsForwardedForFromTrustedProxy(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.10:4312"
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 192.168.1.10")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"192.168.0.0/16"}})

	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIPFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.10:4312"
	r.Header.Set("X-Real-IP", "203.0.113.7")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"192.168.0.0/16"}})

	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIPNilConfig(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:4312"
	r.Header.Set("X-Forwarded-For", "10.0.0.99")

	assert.Equal(t, "203.0.113.5", ExtractClientIP(r, nil))
}

func TestExtractClientIPInvalidForwardedValue(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.10:4312"
	r.Header.Set("X-Forwarded-For", "not-an-ip")

	ip := ExtractClientIP(r, &IPConfig{TrustedProxies: []string{"192.168.0.0/16"}})

	assert.Equal(t, "192.168.1.10", ip)
}
