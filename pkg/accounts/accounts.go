// Package accounts provides the persisted account roster shared by all
// farming sessions: a JSON file of account records that concurrent sessions
// read and write through atomic whole-file replacement.
package accounts

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Account is one entry in the roster.
type Account struct {
	// Email is the sole identity key; comparisons are case-insensitive.
	Email string `json:"email"`

	// Points is the last observed counter value for this account.
	Points int `json:"points"`

	// Login records whether the account is currently believed authenticated.
	Login bool `json:"login"`

	// Proxy is an optional connection string: scheme://[user:pass@]host:port
	Proxy string `json:"proxy,omitempty"`

	// IMAPPassword is the mailbox credential used to resolve verification
	// codes. Presence means the account is eligible for automatic login.
	IMAPPassword string `json:"imapPassword,omitempty"`
}

// HasMailboxCredential reports whether an IMAP password is configured.
func (a Account) HasMailboxCredential() bool {
	return strings.TrimSpace(a.IMAPPassword) != ""
}

// SameEmail reports whether the account's email matches the given one,
// ignoring case and surrounding whitespace.
func (a Account) SameEmail(email string) bool {
	return EmailsEqual(a.Email, email)
}

// EmailsEqual compares two emails case-insensitively.
func EmailsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Proxy describes a parsed proxy connection descriptor.
type Proxy struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// Server returns the scheme://host:port form without credentials.
func (p Proxy) Server() string {
	return fmt.Sprintf("%s://%s:%d", p.Scheme, p.Host, p.Port)
}

// Addr returns the host:port form.
func (p Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// HasCredentials reports whether both username and password are present.
func (p Proxy) HasCredentials() bool {
	return p.Username != "" && p.Password != ""
}

// ParseProxy parses a proxy string of the form scheme://[user:pass@]host:port.
func ParseProxy(s string) (*Proxy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", s, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid proxy %q: scheme and host are required", s)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy port in %q: %w", s, err)
		}
	}

	proxy := &Proxy{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Port:   port,
	}
	if u.User != nil {
		proxy.Username = u.User.Username()
		proxy.Password, _ = u.User.Password()
	}
	return proxy, nil
}
