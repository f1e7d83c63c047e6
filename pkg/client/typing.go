package client

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Typer is the slice of the API the reporter needs
type Typer interface {
	Typing(ctx context.Context) error
}

// TypingReporter throttles typing pings so continuous typing produces at
// most one server write every 2 seconds
type TypingReporter struct {
	api     Typer
	limiter *rate.Limiter
}

func NewTypingReporter(api Typer) *TypingReporter {
	return &TypingReporter{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(typingPingInterval), 1),
	}
}

const typingPingInterval = 2 * time.Second

// Ping should be called on every keystroke; it forwards at most one ping
// per interval and swallows failures
func (t *TypingReporter) Ping(ctx context.Context) {
	if !t.limiter.Allow() {
		return
	}
	_ = t.api.Typing(ctx)
}
