package entity

import "time"

// FlowState is the CSRF state issued when a sign-in link is created.
// It is valid for exactly one lookup-and-consume on the OAuth callback.
type FlowState struct {
	Token     string
	Redirect  string
	CreatedAt time.Time
}
