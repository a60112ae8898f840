// Package mailbox resolves login verification codes over IMAP: the target
// application mails a 6-digit code whose value appears in the message
// subject, and the newest matching subject wins.
package mailbox

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"golang.org/x/net/proxy"

	"github.com/junefarm/farmer/pkg/accounts"
	"github.com/junefarm/farmer/pkg/config"
)

// Classified lookup failures. The session driver treats a missing credential
// as a graceful skip; the other two abort the login attempt.
var (
	// ErrNoCredential means the account has no IMAP password configured.
	ErrNoCredential = errors.New("mailbox credential absent")

	// ErrCodeNotFound means no 6-digit code appeared in the scanned window.
	ErrCodeNotFound = errors.New("verification code not found")
)

// Defaults used when neither config nor environment overrides them.
const (
	DefaultHost        = "imap.gmail.com"
	DefaultPort        = 993
	DefaultMailbox     = "INBOX"
	DefaultSender      = "notify@wallet-tx.blockchain.com"
	DefaultSearchLimit = 100
)

var codePattern = regexp.MustCompile(`\d{6}`)

// Client fetches verification codes from a mailbox.
type Client struct {
	Host        string
	Port        int
	Mailbox     string
	Sender      string
	SearchLimit int

	// Dialer, when set, routes the IMAP connection through a proxy
	// (e.g. the account's SOCKS proxy). Nil dials directly.
	Dialer proxy.Dialer
}

// NewClient builds a client from config, applying environment overrides
// (IMAP_HOST, IMAP_PORT) and defaults.
func NewClient(cfg config.IMAPConfig) *Client {
	c := &Client{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Mailbox:     cfg.Mailbox,
		Sender:      cfg.Sender,
		SearchLimit: cfg.SearchLimit,
	}

	if env := os.Getenv("IMAP_HOST"); env != "" {
		c.Host = env
	}
	if env := os.Getenv("IMAP_PORT"); env != "" {
		if p, err := strconv.Atoi(env); err == nil {
			c.Port = p
		}
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Mailbox == "" {
		c.Mailbox = DefaultMailbox
	}
	if c.Sender == "" {
		c.Sender = DefaultSender
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	return c
}

// ForProxy returns a client that dials through the account's proxy when it
// is a SOCKS endpoint. Nil and non-SOCKS proxies return the client
// unchanged, since browser proxies are not always usable for raw TCP.
func (c *Client) ForProxy(p *accounts.Proxy) (*Client, error) {
	if p == nil {
		return c, nil
	}
	d, err := SOCKSDialer(p.Scheme, p.Addr(), p.Username, p.Password)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return c, nil
	}
	clone := *c
	clone.Dialer = d
	return &clone, nil
}

// FetchCode connects to the account's mailbox and returns the 6-digit code
// from the newest matching message subject. The connection is logged out on
// every exit path.
func (c *Client) FetchCode(email, password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrNoCredential
	}

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	tlsConfig := &tls.Config{ServerName: c.Host}

	var (
		conn *imapclient.Client
		err  error
	)
	if c.Dialer != nil {
		conn, err = imapclient.DialWithDialerTLS(dialerAdapter{c.Dialer}, addr, tlsConfig)
	} else {
		conn, err = imapclient.DialTLS(addr, tlsConfig)
	}
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer func() { _ = conn.Logout() }()

	if err := conn.Login(email, password); err != nil {
		return "", fmt.Errorf("login failed for %s: %w", email, err)
	}

	if _, err := conn.Select(c.Mailbox, true); err != nil {
		return "", fmt.Errorf("failed to open mailbox %s: %w", c.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", c.Sender)
	seqNums, err := conn.Search(criteria)
	if err != nil {
		return "", fmt.Errorf("mailbox search failed: %w", err)
	}
	if len(seqNums) == 0 {
		return "", ErrCodeNotFound
	}

	// Bound the scan to the most recent messages.
	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] < seqNums[j] })
	if len(seqNums) > c.SearchLimit {
		seqNums = seqNums[len(seqNums)-c.SearchLimit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	messages := make(chan *imap.Message, len(seqNums))
	if err := conn.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages); err != nil {
		return "", fmt.Errorf("failed to fetch subjects: %w", err)
	}

	bySeq := make(map[uint32]string, len(seqNums))
	for msg := range messages {
		if msg != nil && msg.Envelope != nil {
			bySeq[msg.SeqNum] = msg.Envelope.Subject
		}
	}

	// Newest first.
	subjects := make([]string, 0, len(seqNums))
	for i := len(seqNums) - 1; i >= 0; i-- {
		if subj, ok := bySeq[seqNums[i]]; ok {
			subjects = append(subjects, subj)
		}
	}

	code, ok := ExtractCode(subjects)
	if !ok {
		return "", ErrCodeNotFound
	}
	return code, nil
}

// ExtractCode scans subjects in order and returns the first 6-digit code.
func ExtractCode(subjects []string) (string, bool) {
	for _, subj := range subjects {
		if m := codePattern.FindString(subj); m != "" {
			return m, true
		}
	}
	return "", false
}

// dialerAdapter bridges x/net/proxy.Dialer to the go-imap dialer interface.
type dialerAdapter struct {
	d proxy.Dialer
}

func (a dialerAdapter) Dial(network, addr string) (net.Conn, error) {
	return a.d.Dial(network, addr)
}

// SOCKSDialer builds a proxy dialer for a socks5 proxy descriptor; other
// schemes return a nil dialer.
func SOCKSDialer(scheme, addr, username, password string) (proxy.Dialer, error) {
	if scheme != "socks5" && scheme != "socks5h" {
		return nil, nil
	}
	var auth *proxy.Auth
	if username != "" {
		auth = &proxy.Auth{User: username, Password: password}
	}
	d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to build socks dialer for %s: %w", addr, err)
	}
	return d, nil
}
