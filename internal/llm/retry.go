package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 5
	// DefaultBaseDelay is the delay before the first retry. Each following
	// retry waits twice as long as the previous one.
	DefaultBaseDelay = time.Second
)

// Transport performs a single generateContent request.
type Transport interface {
	Generate(ctx context.Context, model string, data any) (*genai.GenerateContentResponse, error)
}

// Backend is what the generators need from the call layer.
type Backend interface {
	Call(ctx context.Context, model string, data any) (*genai.GenerateContentResponse, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff describes a deterministic exponential retry schedule.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultBackoff waits 1s, 2s, 4s, 8s and 16s between attempts.
var DefaultBackoff = Backoff{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}

// Delay returns the wait before the given retry (1-based).
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return b.BaseDelay << (retry - 1)
}

// Caller issues one logical request, retrying any failure with exponential
// backoff. It does not look at what failed: transport errors, non-2xx
// responses and undecodable bodies are all retried the same way.
type Caller struct {
	transport Transport
	backoff   Backoff
	sleep     SleepFunc
}

// NewCaller creates a Caller using DefaultBackoff.
func NewCaller(transport Transport) *Caller {
	return &Caller{
		transport: transport,
		backoff:   DefaultBackoff,
		sleep:     sleepContext,
	}
}

// WithBackoff sets a custom retry schedule.
func (c *Caller) WithBackoff(b Backoff) *Caller {
	c.backoff = b
	return c
}

// WithSleep replaces the function used to wait between attempts.
func (c *Caller) WithSleep(fn SleepFunc) *Caller {
	c.sleep = fn
	return c
}

// Call sends the request and returns the decoded response. After the last
// retry fails, the error of that attempt is returned as is.
func (c *Caller) Call(ctx context.Context, model string, data any) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.Delay(attempt)
			log.Warn().
				Err(lastErr).
				Str("model", model).
				Int("retry", attempt).
				Int("maxRetries", c.backoff.MaxRetries).
				Dur("delay", delay).
				Msg("generation call failed, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				log.Warn().Err(err).Str("model", model).Msg("retry wait interrupted")
				return nil, lastErr
			}
		}

		resp, err := c.transport.Generate(ctx, model, data)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	log.Error().Err(lastErr).Str("model", model).Int("attempts", c.backoff.MaxRetries+1).Msg("generation call failed")
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
