package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"sourcing_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestLeadImageKey(t *testing.T) {
	leadID := uuid.MustParse("7d1c52a0-1a55-4c3e-9d6c-2b1f0b0e9a11")
	at := time.UnixMilli(1767225600123)

	got := LeadImageKey(leadID, "../../My Couch (1).jpg", at)
	want := "leads/7d1c52a0-1a55-4c3e-9d6c-2b1f0b0e9a11/1767225600123_My_Couch_1_.jpg"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := LeadImageKey(leadID, "", at); !strings.HasSuffix(got, "_image") {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func TestObjectURLRoundTrip(t *testing.T) {
	base := "https://cdn.example.com/"
	key := "leads/abc/1_chair photo.png"

	u := ObjectURL(base, "lead-images", key)
	if u != "https://cdn.example.com/lead-images/leads/abc/1_chair%20photo.png" {
		t.Fatalf("unexpected url %q", u)
	}
	back, err := KeyFromURL(base, "lead-images", u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != key {
		t.Fatalf("expected %q, got %q", key, back)
	}
}

func TestKeyFromURLRejectsForeignURL(t *testing.T) {
	_, err := KeyFromURL("https://cdn.example.com", "lead-images", "https://elsewhere.example.com/lead-images/x.png")
	if !errors.Is(err, ErrForeignURL) {
		t.Fatalf("expected ErrForeignURL, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	if err := validateContentType("image/JPEG; charset=binary"); err != nil {
		t.Fatalf("expected jpeg to be allowed, got %v", err)
	}
	if err := validateContentType("application/pdf"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := validateFileSize(0, 100); err == nil {
		t.Fatalf("expected empty file to be rejected")
	}
	if err := validateFileSize(101, 100); err == nil {
		t.Fatalf("expected oversized file to be rejected")
	}
	if err := validateFileSize(100, 100); err != nil {
		t.Fatalf("expected file at limit to pass, got %v", err)
	}
}
