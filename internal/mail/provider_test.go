package mail

import (
	"errors"
	"reflect"
	"testing"
)

func TestProviderDirectoryLookup(t *testing.T) {
	dir := NewProviderDirectory()

	tests := []struct {
		name     string
		provider string
		wantHost string
		wantSMTP SMTPSecurity
	}{
		{"gmail", "gmail", "imap.gmail.com", SMTPSecuritySSL},
		{"yahoo", "yahoo", "imap.mail.yahoo.com", SMTPSecuritySSL},
		{"outlook uses starttls", "outlook", "outlook.office365.com", SMTPSecurityStartTLS},
		{"yandex", "yandex", "imap.yandex.com", SMTPSecuritySSL},
		{"icloud uses starttls", "icloud", "imap.mail.me.com", SMTPSecurityStartTLS},
		{"case insensitive", "GMail", "imap.gmail.com", SMTPSecuritySSL},
		{"whitespace trimmed", "  gmail  ", "imap.gmail.com", SMTPSecuritySSL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := dir.Lookup(tt.provider)
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected error: %v", tt.provider, err)
			}
			if cfg.IMAPHost != tt.wantHost {
				t.Errorf("IMAPHost = %q, want %q", cfg.IMAPHost, tt.wantHost)
			}
			if cfg.IMAPPort != 993 {
				t.Errorf("IMAPPort = %d, want 993", cfg.IMAPPort)
			}
			if cfg.SMTPSecurity != tt.wantSMTP {
				t.Errorf("SMTPSecurity = %q, want %q", cfg.SMTPSecurity, tt.wantSMTP)
			}
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		_, err := dir.Lookup("protonmail")
		if !errors.Is(err, ErrUnsupportedProvider) {
			t.Errorf("expected ErrUnsupportedProvider, got %v", err)
		}
	})
}

func TestProviderDirectoryKnown(t *testing.T) {
	dir := NewProviderDirectory()
	want := []string{"gmail", "icloud", "outlook", "yahoo", "yandex"}
	if got := dir.Known(); !reflect.DeepEqual(got, want) {
		t.Errorf("Known() = %v, want %v", got, want)
	}
}
