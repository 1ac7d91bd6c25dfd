// Package phone normalizes messaging channel addresses.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	// ErrEmptyAddress is returned for blank input.
	ErrEmptyAddress = errors.New("address is empty")
	// ErrGroupAddress is returned for group chats and broadcast lists.
	ErrGroupAddress = errors.New("group and broadcast addresses are not supported")
	// ErrInvalidAddress is returned when the input is not a dialable number.
	ErrInvalidAddress = errors.New("address is not a valid phone number")
)

const (
	minDigits = 6
	maxDigits = 15
)

// individualSuffixes are the gateway suffixes that mark a one-to-one chat.
var individualSuffixes = []string{"@c.us", "@s.whatsapp.net"}

// groupSuffixes mark multi-party chats that never map to a single lead.
var groupSuffixes = []string{"@g.us", "@broadcast", "@newsletter"}

// NormalizeAddress turns a raw gateway sender into the canonical lead address:
// digits only, no gateway suffix, no leading "+". "5551234567@c.us" and
// "+5551234567" both yield "5551234567".
func NormalizeAddress(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", ErrEmptyAddress
	}

	for _, suffix := range groupSuffixes {
		if strings.HasSuffix(addr, suffix) {
			return "", ErrGroupAddress
		}
	}
	for _, suffix := range individualSuffixes {
		addr = strings.TrimSuffix(addr, suffix)
	}
	if strings.Contains(addr, "@") {
		return "", ErrInvalidAddress
	}

	var b strings.Builder
	b.Grow(len(addr))
	for _, r := range addr {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidAddress
		}
	}

	digits := b.String()
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidAddress
	}
	if _, err := phonenumbers.Parse("+"+digits, ""); err != nil {
		return "", ErrInvalidAddress
	}
	return digits, nil
}

// E164 formats a normalized address for display. Addresses libphonenumber
// cannot parse are returned with a bare "+" prefix.
func E164(address string) string {
	number, err := phonenumbers.Parse("+"+address, "")
	if err != nil {
		return "+" + address
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
