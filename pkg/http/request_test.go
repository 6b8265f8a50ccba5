package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/mbenedict/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{
			name:       "first public forwarded address wins",
			remoteAddr: "10.0.0.1:44321",
			xff:        "203.0.113.7, 10.0.0.2",
			want:       "203.0.113.7",
		},
		{
			name:       "private forwarded addresses are skipped",
			remoteAddr: "10.0.0.1:44321",
			xff:        "192.168.1.10, 10.0.0.2, 198.51.100.9",
			want:       "198.51.100.9",
		},
		{
			name:       "loopback forwarded address is not trusted",
			remoteAddr: "203.0.113.7:44321",
			xff:        "127.0.0.1",
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded value falls through",
			remoteAddr: "203.0.113.7:44321",
			xff:        "not-an-ip",
			want:       "203.0.113.7",
		},
		{
			name:       "public real ip used when forwarded header absent",
			remoteAddr: "10.0.0.1:44321",
			realIP:     "198.51.100.9",
			want:       "198.51.100.9",
		},
		{
			name:       "private real ip falls back to remote addr",
			remoteAddr: "203.0.113.7:44321",
			realIP:     "192.168.1.10",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:44321",
			want:       "2001:db8::1",
		},
		{
			name: "empty remote addr yields sentinel",
			want: pkghttp.UnknownOrigin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/forms/submit", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, pkghttp.ClientIP(r))
		})
	}
}
