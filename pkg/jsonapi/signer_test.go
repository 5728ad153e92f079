package jsonapi

import (
	"errors"
	"net/http"
	"testing"
)

func TestBearerSignerSetsHeaders(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://merchant.example.com/api/orders", nil)
	signer := BearerSigner{Token: "tok_123", VersionHeader: "Revolut-Api-Version", Version: "2024-09-01"}

	if err := signer.Apply(req, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok_123" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if got := req.Header.Get("Revolut-Api-Version"); got != "2024-09-01" {
		t.Fatalf("expected version header, got %q", got)
	}
}

func TestBearerSignerRejectsEmptyToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://merchant.example.com/", nil)
	err := BearerSigner{Token: "  "}.Apply(req, nil)
	var signErr *SignError
	if !errors.As(err, &signErr) {
		t.Fatalf("expected SignError, got %v", err)
	}
}

func TestNopSignerLeavesRequestUntouched(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/rates", nil)
	if err := (NopSigner{}).Apply(req, []byte(`{}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(req.Header) != 0 {
		t.Fatalf("expected no headers, got %v", req.Header)
	}
}

func TestStaticTokenSigner(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com/v1/invoices", nil)
	if err := (StaticTokenSigner{Authorization: "Bearer fixed"}).Apply(req, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer fixed" {
		t.Fatalf("expected fixed header, got %q", got)
	}
}
