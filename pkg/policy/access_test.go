package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name    string
		emails  []string
		domain  string
		email   string
		allowed bool
	}{
		{"open mode allows everyone", nil, "", "user@x.com", true},
		{"email list denies non-members", []string{"a@y.com"}, "", "user@x.com", false},
		{"email list allows members", []string{"a@y.com"}, "", "a@y.com", true},
		{"domain allows matching suffix", nil, "co.com", "user@co.com", true},
		{"domain denies other domains", nil, "co.com", "user@other.com", false},
		{"email match wins even off-domain", []string{"ext@other.com"}, "co.com", "ext@other.com", true},
		{"case insensitive", []string{"A@Y.com"}, "", "a@y.COM", true},
		{"subdomain-ish suffix is not a match", nil, "co.com", "user@evilco.com", false},
		{"empty email denied", nil, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewEvaluator(tt.emails, tt.domain)
			assert.Equal(t, tt.allowed, ev.IsAllowed(tt.email))
		})
	}
}
