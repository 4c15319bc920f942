package mail

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedProvider indicates the provider tag is not in the directory
	ErrUnsupportedProvider = errors.New("unsupported mail provider")
)

// SMTPSecurity is the transport security mode used when dialing SMTP
type SMTPSecurity string

const (
	// SMTPSecuritySSL connects over implicit TLS (SMTPS, usually port 465)
	SMTPSecuritySSL SMTPSecurity = "ssl"
	// SMTPSecurityStartTLS connects in plain text and upgrades via STARTTLS
	SMTPSecurityStartTLS SMTPSecurity = "starttls"
)

// ProviderConfig holds the connection parameters for one mail provider
type ProviderConfig struct {
	Name         string
	IMAPHost     string
	IMAPPort     int
	SMTPHost     string
	SMTPPort     int
	SMTPSecurity SMTPSecurity
}

// ProviderDirectory maps provider tags to connection parameters. The table
// is fixed at construction and never mutated afterwards.
type ProviderDirectory struct {
	providers map[string]ProviderConfig
}

// NewProviderDirectory returns the directory of supported providers
func NewProviderDirectory() *ProviderDirectory {
	return &ProviderDirectory{
		providers: map[string]ProviderConfig{
			"gmail": {
				Name:         "gmail",
				IMAPHost:     "imap.gmail.com",
				IMAPPort:     993,
				SMTPHost:     "smtp.gmail.com",
				SMTPPort:     465,
				SMTPSecurity: SMTPSecuritySSL,
			},
			"yahoo": {
				Name:         "yahoo",
				IMAPHost:     "imap.mail.yahoo.com",
				IMAPPort:     993,
				SMTPHost:     "smtp.mail.yahoo.com",
				SMTPPort:     465,
				SMTPSecurity: SMTPSecuritySSL,
			},
			"outlook": {
				Name:         "outlook",
				IMAPHost:     "outlook.office365.com",
				IMAPPort:     993,
				SMTPHost:     "smtp.office365.com",
				SMTPPort:     587,
				SMTPSecurity: SMTPSecurityStartTLS,
			},
			"yandex": {
				Name:         "yandex",
				IMAPHost:     "imap.yandex.com",
				IMAPPort:     993,
				SMTPHost:     "smtp.yandex.com",
				SMTPPort:     465,
				SMTPSecurity: SMTPSecuritySSL,
			},
			"icloud": {
				Name:         "icloud",
				IMAPHost:     "imap.mail.me.com",
				IMAPPort:     993,
				SMTPHost:     "smtp.mail.me.com",
				SMTPPort:     587,
				SMTPSecurity: SMTPSecurityStartTLS,
			},
		},
	}
}

// Lookup returns the connection parameters for a provider tag
func (d *ProviderDirectory) Lookup(provider string) (ProviderConfig, error) {
	cfg, ok := d.providers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return ProviderConfig{}, ErrUnsupportedProvider
	}
	return cfg, nil
}

// Known returns the supported provider tags in stable order
func (d *ProviderDirectory) Known() []string {
	names := make([]string, 0, len(d.providers))
	for name := range d.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
