// Package policy decides whether an authenticated email may use the gateway.
package policy

import "strings"

// Evaluator applies the configured allow-lists. With both lists empty the
// gateway runs in open mode and every verified email is allowed.
type Evaluator struct {
	allowedEmails map[string]struct{}
	allowedDomain string
}

func NewEvaluator(allowedEmails []string, allowedDomain string) *Evaluator {
	set := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &Evaluator{
		allowedEmails: set,
		allowedDomain: strings.ToLower(strings.TrimSpace(allowedDomain)),
	}
}

// IsAllowed reports whether email passes the allow-lists. A non-empty list
// admits exact email matches; a non-empty domain admits any address on
// that domain. Either match is sufficient.
func (e *Evaluator) IsAllowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if len(e.allowedEmails) == 0 && e.allowedDomain == "" {
		return true // open mode
	}
	if _, ok := e.allowedEmails[email]; ok {
		return true
	}
	if e.allowedDomain != "" && strings.HasSuffix(email, "@"+e.allowedDomain) {
		return true
	}
	return false
}
