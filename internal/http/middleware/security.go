// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adds conservative security headers to every response. HSTS is
// only emitted when enabled and the request actually arrived over TLS;
// enabling it for plain-HTTP deployments (the common depot setup) would
// poison browsers against the host.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge time.Duration // defaults to 180 days when <= 0
	NoStore    bool          // add Cache-Control: no-store for sensitive APIs
}

// SecurityHeaders returns a Gin middleware that applies baseline hardening
// headers (nosniff, frame denial, no referrer) plus the configured optional
// ones.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
		}

		if opt.EnableHSTS && c.Request.TLS != nil {
			h.Set("Strict-Transport-Security",
				fmt.Sprintf("max-age=%d; includeSubDomains", maxAge))
		}

		c.Next()
	}
}
