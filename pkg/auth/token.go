package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseUpstreamToken decodes the claims of a catalog token without verifying
// its signature. Numeric and string subjects are both accepted.
func ParseUpstreamToken(tokenString string) (*UpstreamClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("token is required")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parsing upstream token: %w", err)
	}

	out := &UpstreamClaims{
		User:    stringClaim(claims["user"]),
		Subject: stringClaim(claims["sub"]),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		out.Expires = &t
	}
	return out, nil
}

// SessionID derives a stable storage key from a bearer token so the raw
// token never appears in cache keys or logs.
func SessionID(tokenString string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(tokenString)))
	return hex.EncodeToString(sum[:])
}

// ExpiresBefore reports whether the token carries an expiry earlier than t.
func (c *UpstreamClaims) ExpiresBefore(t time.Time) bool {
	return c != nil && c.Expires != nil && c.Expires.Before(t)
}

func stringClaim(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
