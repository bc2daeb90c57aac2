package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrConnection", err: ErrConnection, expected: "connection error"},
		{name: "ErrProtocolParse", err: ErrProtocolParse, expected: "protocol parse error"},
		{name: "ErrRedirectLimit", err: ErrRedirectLimit, expected: "redirect limit exceeded"},
		{name: "ErrPlatformFormatChanged", err: ErrPlatformFormatChanged, expected: "platform format changed"},
		{name: "ErrNoFormatsFound", err: ErrNoFormatsFound, expected: "no formats found: platform format changed"},
		{name: "ErrVideoUnavailable", err: ErrVideoUnavailable, expected: "video unavailable: platform format changed"},
		{name: "ErrAgeRestricted", err: ErrAgeRestricted, expected: "age restricted"},
		{name: "ErrGeoBlocked", err: ErrGeoBlocked, expected: "geo blocked"},
		{name: "ErrRateLimited", err: ErrRateLimited, expected: "rate limited"},
		{name: "ErrIO", err: ErrIO, expected: "io error"},
		{name: "ErrNoMatchingFormat", err: ErrNoMatchingFormat, expected: "no matching format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestPlatformFormatChangedFamily(t *testing.T) {
	for _, err := range []error{ErrNoFormatsFound, ErrVideoUnavailable} {
		if !errors.Is(err, ErrPlatformFormatChanged) {
			t.Errorf("%v should wrap ErrPlatformFormatChanged", err)
		}
	}

	wrapped := fmt.Errorf("extract: %w", ErrNoFormatsFound)
	if !errors.Is(wrapped, ErrPlatformFormatChanged) {
		t.Error("wrapping should keep the ErrPlatformFormatChanged chain")
	}
	if errors.Is(ErrIO, ErrPlatformFormatChanged) {
		t.Error("ErrIO must not be part of the platform family")
	}
}

func TestErrorUniqueness(t *testing.T) {
	errorList := []error{
		ErrConnection,
		ErrProtocolParse,
		ErrRedirectLimit,
		ErrUnexpectedStatus,
		ErrAgeRestricted,
		ErrRateLimited,
		ErrGeoBlocked,
		ErrContentWarning,
		ErrRemoved,
		ErrCopyright,
		ErrIO,
		ErrNoMatchingFormat,
		ErrInvalidURL,
	}

	for i, err1 := range errorList {
		for j, err2 := range errorList {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Error %d and %d should not be equal", i, j)
			}
		}
	}
}
