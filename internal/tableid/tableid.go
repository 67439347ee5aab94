// Package tableid generates the short identifiers used for tables, rounds,
// hands and invite codes. IDs are lowercase Crockford base32 from crypto/rand,
// so they are URL-safe and unambiguous when read aloud at a table.
package tableid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const (
	// TableIDLength is the length of table, round and hand identifiers.
	TableIDLength = 12
	// InviteCodeLength is the length of private-table invite codes.
	InviteCodeLength = 6
)

// New returns a fresh table/round/hand identifier.
func New() string {
	return generate(TableIDLength)
}

// NewInviteCode returns an uppercase invite code for a private table.
func NewInviteCode() string {
	return strings.ToUpper(generate(InviteCodeLength))
}

// NormalizeInviteCode uppercases and trims a user-entered invite code so
// lookups are forgiving about case and whitespace.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that an ID has the expected length and alphabet.
func Validate(id string) error {
	if len(id) != TableIDLength {
		return fmt.Errorf("id must be exactly %d characters, got %d", TableIDLength, len(id))
	}
	for i, ch := range id {
		if !strings.ContainsRune(alphabet, ch) {
			return fmt.Errorf("invalid character %q at position %d", ch, i)
		}
	}
	return nil
}

func generate(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("tableid: failed to read random bytes: " + err.Error())
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
