package broker

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no broker integration is configured.
var ErrUnavailable = errors.New("broker connectivity is not available")

// Credentials are what a user submits to link a broker account.
type Credentials struct {
	UserID   string `json:"user_id" validate:"required"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	Server   string `json:"server" validate:"required"`
}

type Result struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latency_ms"`
}

// Provider talks to a concrete broker.
type Provider interface {
	Name() string
	Validate(ctx context.Context, c Credentials) (Result, error)
}

// Capability is either Available(provider) or Unavailable. The engine
// never depends on it; only onboarding does.
type Capability struct {
	provider Provider
}

func Available(p Provider) Capability { return Capability{provider: p} }

func Unavailable() Capability { return Capability{} }

func (c Capability) Available() bool { return c.provider != nil }

// Validate checks credentials with the provider, or fails with
// ErrUnavailable.
func (c Capability) Validate(ctx context.Context, creds Credentials) (Result, error) {
	if c.provider == nil {
		return Result{Connected: false, Message: ErrUnavailable.Error()}, ErrUnavailable
	}
	return c.provider.Validate(ctx, creds)
}
