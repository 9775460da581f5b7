package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

// SecureHeaders stamps browser security headers on every response. Empty
// string fields suppress the matching header; the CSP and permissions
// policy fall back to the built-in dashboard policies unless DevMode drops
// them entirely.
type SecureHeaders struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	ContentSecurityPolicy string
	PermissionsPolicy     string

	XFrameOptions       string
	XContentTypeOptions string
	XSSProtection       string
	ReferrerPolicy      string

	// DevMode disables the CSP and permissions policy so unproxied asset
	// servers and live-reload tooling keep working locally.
	DevMode bool
}

// DefaultSecureHeaders returns the production policy set.
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000,
		HSTSIncludeSubdomains: true,
		HSTSPreload:           true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		XSSProtection:         "1; mode=block",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Handler applies the configured headers. WebSocket upgrade requests pass
// through untouched so the handshake headers stay exactly as the client
// sent them.
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()

		// HSTS is meaningless over plain HTTP; DevMode forces it so the
		// header can be exercised without a TLS listener.
		if sh.HSTSMaxAge > 0 && (r.TLS != nil || sh.DevMode) {
			h.Set("Strict-Transport-Security", sh.hstsValue())
		}

		switch {
		case sh.ContentSecurityPolicy != "":
			h.Set("Content-Security-Policy", sh.ContentSecurityPolicy)
		case !sh.DevMode:
			h.Set("Content-Security-Policy", dashboardCSP)
		}

		setHeader(h, "X-Frame-Options", sh.XFrameOptions)
		setHeader(h, "X-Content-Type-Options", sh.XContentTypeOptions)
		setHeader(h, "X-XSS-Protection", sh.XSSProtection)
		setHeader(h, "Referrer-Policy", sh.ReferrerPolicy)

		switch {
		case sh.PermissionsPolicy != "":
			h.Set("Permissions-Policy", sh.PermissionsPolicy)
		case !sh.DevMode:
			h.Set("Permissions-Policy", lockedPermissionsPolicy)
		}

		next.ServeHTTP(w, r)
	})
}

func (sh *SecureHeaders) hstsValue() string {
	v := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
	if sh.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	if sh.HSTSPreload {
		v += "; preload"
	}
	return v
}

func setHeader(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// dashboardCSP admits the CDNs serving the Plotly and Leaflet bundles the
// species explorer page loads, plus the live progress WebSocket.
var dashboardCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net https://cdn.plot.ly https://unpkg.com",
	"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://unpkg.com",
	"img-src 'self' data: blob: https:",
	"font-src 'self' data:",
	"connect-src 'self' ws: wss:",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}, "; ")

// lockedPermissionsPolicy switches off browser capabilities the dashboard
// never uses.
var lockedPermissionsPolicy = strings.Join([]string{
	"accelerometer=()",
	"camera=()",
	"geolocation=()",
	"gyroscope=()",
	"magnetometer=()",
	"microphone=()",
	"payment=()",
	"usb=()",
	"interest-cohort=()",
}, ", ")
