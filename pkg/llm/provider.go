package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Reply is a completed generation from the upstream gateway.
type Reply struct {
	Content    string
	ImageURL   string // set for image generations
	TokensUsed int    // upstream estimate; 0 when the gateway omits usage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(topP float64) Option {
	return func(o *Options) {
		o.TopP = topP
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Upstream failure taxonomy. Every error returned by a Provider wraps one
// of these so callers can branch without knowing the transport.
var (
	// ErrTimeout: the bounded upstream call did not finish in time.
	ErrTimeout = errors.New("upstream timeout")
	// ErrMalformedResponse: the gateway answered 2xx but the payload was
	// not usable.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// RejectedError is a non-2xx answer from the gateway.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request: status %d", e.Status)
}

// Provider defines the contract for the upstream model gateway.
type Provider interface {
	// Chat sends an ordered chat history to the model and returns the reply.
	Chat(ctx context.Context, history []Message, options ...Option) (*Reply, error)

	// ListModels returns the gateway's available model identifiers, in the
	// order the gateway reports them.
	ListModels(ctx context.Context) ([]string, error)

	// GenerateImage asks an image-capable model for a picture and returns
	// a reply whose ImageURL points at the result.
	GenerateImage(ctx context.Context, prompt string, options ...Option) (*Reply, error)
}
