package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		region   string
		expected string
	}{
		// National US numbers -> +1 prefix
		{"10 digits with dashes", "201-555-0123", "US", "+12015550123"},
		{"10 digits with parens", "(201) 555-0123", "US", "+12015550123"},
		{"10 digits with dots", "201.555.0123", "", "+12015550123"},
		{"11 digits with 1", "1-201-555-0123", "US", "+12015550123"},

		// Already E.164
		{"E.164 format", "+12015550123", "US", "+12015550123"},
		{"E.164 with spaces", "+1 201 555 0123", "GB", "+12015550123"},

		// Other regions
		{"UK mobile national", "07400 123456", "GB", "+447400123456"},
		{"UK mobile international", "+447400123456", "US", "+447400123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input, tt.region)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"few digits", "123"},
		{"email", "user@example.com"},
		{"letters mixed in", "201abc5550123"},
		{"letters only", "abcdefghij"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.input, "US"); !errors.Is(err, ErrInvalid) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalid", tt.input, err)
			}
		})
	}
}

func TestNormalizeOptional(t *testing.T) {
	got, err := NormalizeOptional("   ", "US")
	if err != nil || got != "" {
		t.Fatalf("blank: got %q, %v", got, err)
	}
	if _, err := NormalizeOptional("123", "US"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
