package types

import (
	"testing"
)

func TestFormatCiphered(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   bool
	}{
		{name: "plain url", format: Format{URL: "http://x.test/v"}, want: false},
		{name: "ciphered", format: Format{URL: "http://x.test/v", S: "abcde"}, want: true},
		{name: "plaintext signature wins", format: Format{URL: "http://x.test/v", Sig: "ok", S: "abcde"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Ciphered(); got != tt.want {
				t.Errorf("Ciphered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatSignatureParam(t *testing.T) {
	if got := (Format{}).SignatureParam(); got != "signature" {
		t.Errorf("Expected default 'signature', got '%s'", got)
	}
	if got := (Format{SigParam: "sig"}).SignatureParam(); got != "sig" {
		t.Errorf("Expected 'sig', got '%s'", got)
	}
}

func TestFormatZeroValues(t *testing.T) {
	format := Format{}

	if format.Itag != "" {
		t.Errorf("Expected empty Itag, got '%s'", format.Itag)
	}
	if format.URL != "" {
		t.Errorf("Expected empty URL, got '%s'", format.URL)
	}
	if format.Ciphered() {
		t.Error("Zero format must not be ciphered")
	}
}
