package auth

import (
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "a@b.com", want: "a@b.com"},
		{in: "  J@B.COM ", want: "j@b.com"},
		{in: "not-an-address", want: "not-an-address"},
		{in: "   ", wantErr: ErrEmailRequired},
		{in: "", wantErr: ErrEmailRequired},
	}
	for _, tt := range tests {
		got, err := NormalizeEmail(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("NormalizeEmail(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"a@b.com":        "a",
		"jane.doe@x.org": "jane.doe",
		"nohost":         "nohost",
		"@b.com":         "",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstName(t *testing.T) {
	if got := FirstName("Jane Q Doe"); got != "Jane" {
		t.Errorf("FirstName() = %q, want Jane", got)
	}
	if got := FirstName("  "); got != "" {
		t.Errorf("FirstName(blank) = %q, want empty", got)
	}
}
