package env

import (
	"os"
	"strings"
)

// Prefix namespaces every storefront environment variable.
const Prefix = "STOREFRONT_"

// Get returns the value of the given environment variable or a fallback.
// The prefixed name wins over the bare one so local overrides stay scoped.
func Get(key, fallback string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Bool reads a boolean flag, accepting 1/true/yes/on.
func Bool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(Get(key, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
