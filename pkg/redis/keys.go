package redis

import "strings"

const DefaultNamespace = "sf"

const (
	cartPrefix      = "cart"
	sessionPrefix   = "session"
	catalogPrefix   = "catalog"
	rateLimitPrefix = "rate_limit"
)

// Keyspace builds namespaced keys, e.g. sf:cart:cart:johnd.
type Keyspace struct {
	namespace string
}

func NewKeyspace(namespace string) Keyspace {
	return Keyspace{namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

// CartKey holds a cart snapshot; key is the cart manager's storage key.
func (k Keyspace) CartKey(key string) string {
	return k.join(cartPrefix, key)
}

// SessionKey holds a login session, keyed by the token hash.
func (k Keyspace) SessionKey(id string) string {
	return k.join(sessionPrefix, id)
}

// CatalogKey holds a cached catalog response.
func (k Keyspace) CatalogKey(parts ...string) string {
	return k.join(append([]string{catalogPrefix}, parts...)...)
}

// RateLimitKey holds a login attempt counter.
func (k Keyspace) RateLimitKey(scope string) string {
	return k.join(rateLimitPrefix, scope)
}

func (k Keyspace) join(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
