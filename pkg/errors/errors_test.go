package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
		shown     bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, shown: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", shown: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", shown: true},
		{code: CodeStateConflict, status: http.StatusConflict, publicMsg: "cart changed during checkout", detailsOK: true, shown: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", shown: true},
		{code: CodeCanceled, status: 499, publicMsg: "request canceled", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusBadGateway, publicMsg: "catalog unavailable", retryable: true, detailsOK: true, shown: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.UserFacing != tt.shown {
			t.Fatalf("code %s expected user facing %v got %v", tt.code, tt.shown, meta.UserFacing)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "fetch products")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: fetch products: boom" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeStateConflict, "cart changed"))
	if !IsCode(err, CodeStateConflict) {
		t.Fatal("expected state conflict code")
	}
	if IsCode(err, CodeValidation) {
		t.Fatal("did not expect validation code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestToPublic(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    Code
		message string
		details bool
	}{
		{
			name:    "user facing message passes through",
			err:     New(CodeValidation, "Your cart is empty"),
			status:  http.StatusBadRequest,
			code:    CodeValidation,
			message: "Your cart is empty",
		},
		{
			name:    "dependency keeps catalog message and details",
			err:     Wrap(CodeDependency, stdErrors.New("dial tcp"), "failed to fetch products").WithDetails(map[string]string{"redis": "ok"}),
			status:  http.StatusBadGateway,
			code:    CodeDependency,
			message: "failed to fetch products",
			details: true,
		},
		{
			name:    "internal message hidden",
			err:     New(CodeInternal, "nil pointer in registry"),
			status:  http.StatusInternalServerError,
			code:    CodeInternal,
			message: "internal server error",
		},
		{
			name:    "canceled message hidden",
			err:     Wrap(CodeCanceled, context.Canceled, "checkout canceled"),
			status:  499,
			code:    CodeCanceled,
			message: "request canceled",
		},
		{
			name:    "uncoded error",
			err:     stdErrors.New("secret"),
			status:  http.StatusInternalServerError,
			code:    CodeInternal,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		got := ToPublic(tt.err)
		if got.Status != tt.status || got.Code != tt.code || got.Message != tt.message {
			t.Fatalf("%s: unexpected projection %+v", tt.name, got)
		}
		if (got.Details != nil) != tt.details {
			t.Fatalf("%s: details presence mismatch: %+v", tt.name, got.Details)
		}
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeDependency, "failed to fetch product with id: %d", 7)
	if err.Message() != "failed to fetch product with id: 7" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestDumpFlagsTimeoutAndCancel(t *testing.T) {
	d := Dump(Wrap(CodeDependency, context.DeadlineExceeded, "failed to fetch categories"))
	if !d.Timeout || d.Canceled {
		t.Fatalf("expected timeout only, got %+v", d)
	}
	if !d.Retryable || d.Code != CodeDependency {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}

	d = Dump(Wrap(CodeCanceled, context.Canceled, "checkout canceled"))
	if !d.Canceled {
		t.Fatalf("expected canceled flag")
	}
	if _, ok := d.Fields()["canceled"]; !ok {
		t.Fatalf("canceled missing from fields")
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatalf("pg fields should be omitted")
	}
}
