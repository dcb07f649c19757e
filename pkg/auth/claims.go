package auth

import "time"

// UpstreamClaims is the identity carried by a catalog-issued token. The
// catalog signs with a key we do not hold, so these are informational only.
type UpstreamClaims struct {
	User    string
	Subject string
	Expires *time.Time
}

// DisplayName prefers the user claim, then the subject, then fallback.
func (c *UpstreamClaims) DisplayName(fallback string) string {
	if c == nil {
		return fallback
	}
	if c.User != "" {
		return c.User
	}
	if c.Subject != "" {
		return c.Subject
	}
	return fallback
}
