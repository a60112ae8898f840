package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store provides access to the roster file. Entries are either bare email
// strings or structured objects; the store preserves the original shape and
// order of entries it does not touch.
//
// There is no cross-process locking: concurrent writers follow a
// read-full / mutate-one-entry / atomic-replace discipline, and the accepted
// consistency model is last-writer-wins per field. Each session only writes
// its own account's fields, so this is safe in practice.
type Store struct {
	path string
}

// NewStore creates a store bound to the given roster path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns all accounts in file order. A missing or malformed file is
// treated as an empty roster, never an error: the caller must be able to run
// against a roster that does not exist yet.
func (s *Store) Load() []Account {
	raw := s.loadRaw()
	out := make([]Account, 0, len(raw))
	for _, entry := range raw {
		if acc, ok := decodeEntry(entry); ok {
			out = append(out, acc)
		}
	}
	return out
}

// Emails returns the trimmed emails of all entries, in file order.
func (s *Store) Emails() []string {
	var out []string
	for _, acc := range s.Load() {
		if e := strings.TrimSpace(acc.Email); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the account for the given email, if present.
func (s *Store) Find(email string) (Account, bool) {
	for _, acc := range s.Load() {
		if acc.SameEmail(email) {
			return acc, true
		}
	}
	return Account{}, false
}

// UpsertField sets a single field on the entry identified by email. The
// update is skipped entirely when the stored value already equals the new
// one. A matching bare-string entry is promoted to a structured record; an
// unknown email appends a new record. The whole snapshot is rewritten
// atomically so concurrent readers never observe a partial file.
func (s *Store) UpsertField(email, field string, value any) error {
	_, _, err := s.upsert(email, field, value)
	return err
}

// SetLogin records the authenticated state for an account.
func (s *Store) SetLogin(email string, login bool) error {
	return s.UpsertField(email, "login", login)
}

// SetPoints stores a points value, returning the previous value (nil when the
// account had none) and whether the file was actually modified.
func (s *Store) SetPoints(email string, points int) (prev *int, changed bool, err error) {
	prevVal, changed, err := s.upsert(email, "points", points)
	if err != nil {
		return nil, false, err
	}
	if p, ok := asInt(prevVal); ok {
		prev = &p
	}
	return prev, changed, nil
}

// upsert is the single read-modify-write path. It returns the field's prior
// value for entries that already existed as structured records.
func (s *Store) upsert(email, field string, value any) (prev any, changed bool, err error) {
	raw := s.loadRaw()

	for i, entry := range raw {
		switch e := entry.(type) {
		case map[string]any:
			if !EmailsEqual(identityOf(e), email) {
				continue
			}
			prev = e[field]
			if valuesEqual(prev, value) {
				return prev, false, nil
			}
			e[field] = value
			return prev, true, s.write(raw)
		case string:
			if !EmailsEqual(e, email) {
				continue
			}
			// Promote the bare entry to a structured record in place.
			raw[i] = map[string]any{"email": e, field: value}
			return nil, true, s.write(raw)
		}
	}

	raw = append(raw, map[string]any{"email": strings.TrimSpace(email), field: value})
	return nil, true, s.write(raw)
}

func (s *Store) loadRaw() []any {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// write replaces the roster atomically: encode to a temporary file next to
// the target, then rename over it in one step.
func (s *Store) write(raw []any) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write roster temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace roster: %w", err)
	}
	return nil
}

// decodeEntry converts a raw roster entry into an Account. Bare strings are
// emails with defaults; objects take the first of email|mail|login as the
// identity key, matching what the roster format has always accepted.
func decodeEntry(entry any) (Account, bool) {
	switch e := entry.(type) {
	case string:
		email := strings.TrimSpace(e)
		if email == "" {
			return Account{}, false
		}
		return Account{Email: email, Login: true}, true
	case map[string]any:
		email := strings.TrimSpace(identityOf(e))
		if email == "" {
			return Account{}, false
		}
		acc := Account{Email: email, Login: true}
		if pts, ok := asInt(firstOf(e, "points", "pts", "point")); ok {
			acc.Points = pts
		}
		if v, ok := e["login"]; ok {
			acc.Login = truthy(v)
		}
		if v, ok := e["proxy"].(string); ok {
			acc.Proxy = strings.TrimSpace(v)
		}
		if v, ok := e["imapPassword"].(string); ok {
			acc.IMAPPassword = v
		}
		return acc, true
	default:
		return Account{}, false
	}
}

func identityOf(e map[string]any) string {
	for _, key := range []string{"email", "mail", "login"} {
		if v, ok := e[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstOf(e map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := e[key]; ok {
			return v
		}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// truthy interprets the roster's loose boolean encoding: real booleans pass
// through, strings are false only for "false", "0" and "no".
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "false", "0", "no":
			return false
		}
		return true
	case nil:
		return false
	default:
		return true
	}
}

// valuesEqual compares a stored JSON value with a new field value, tolerating
// the int/float64 mismatch introduced by encoding/json.
func valuesEqual(stored, next any) bool {
	if si, ok := asInt(stored); ok {
		if ni, ok := asInt(next); ok {
			return si == ni
		}
	}
	return stored == next
}
