package env

import "testing"

func TestGetPrefersPrefixedName(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv(Prefix+"LOG_FORMAT", "console")

	if got := Get("LOG_FORMAT", "fallback"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallback(t *testing.T) {
	if got := Get("STOREFRONT_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv(Prefix+"FLAG_ON", "yes")
	t.Setenv(Prefix+"FLAG_OFF", "0")

	if !Bool("FLAG_ON", false) {
		t.Fatal("expected FLAG_ON to be true")
	}
	if Bool("FLAG_OFF", true) {
		t.Fatal("expected FLAG_OFF to be false")
	}
	if !Bool("FLAG_MISSING", true) {
		t.Fatal("expected fallback for missing flag")
	}
}
