package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		userAgent string
		want      bool
	}{
		{"plain query", http.MethodGet, "/investments?state=Washington", "Go-http-client/1.1", false},
		{"curl is normal traffic", http.MethodGet, "/health", "curl/8.5.0", false},
		{"path traversal", http.MethodGet, "/investments/../../etc/passwd", "", true},
		{"credential file probe", http.MethodGet, "/.env", "", true},
		{"sql injection in query", http.MethodGet, "/investments?state=x union select 1", "", true},
		{"script injection in query", http.MethodGet, "/investments?state=<script>alert(1)</script>", "", true},
		{"scanner user agent", http.MethodGet, "/investments", "sqlmap/1.7", true},
		{"unusual method", "TRACE", "/investments", "", true},
		{"oversized url", http.MethodGet, "/investments?state=" + strings.Repeat("a", 3000), "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// httptest.NewRequest panics on targets with literal spaces, so
			// build the request directly from the parsed target.
			u, err := url.Parse(tc.target)
			if err != nil {
				t.Fatalf("parse target %q: %v", tc.target, err)
			}
			req := &http.Request{Method: tc.method, URL: u, Header: make(http.Header), RemoteAddr: "192.0.2.1:1234"}
			if tc.userAgent != "" {
				req.Header.Set("User-Agent", tc.userAgent)
			}
			if got := detectSuspiciousRequest(req, nil); got != tc.want {
				t.Errorf("detectSuspiciousRequest = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectSuspiciousRequestCountsMetrics(t *testing.T) {
	metrics := &securityMetrics{}
	req := httptest.NewRequest(http.MethodGet, "/.git/config", nil)

	if !detectSuspiciousRequest(req, metrics) {
		t.Fatal("probe request not flagged")
	}
	if got := atomic.LoadInt64(&metrics.suspiciousRequests); got != 1 {
		t.Fatalf("suspiciousRequests = %d, want 1", got)
	}
}
