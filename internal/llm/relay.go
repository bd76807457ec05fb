package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	DefaultRelayURL     = "http://localhost:3001"
	DefaultRelayTimeout = 120 * time.Second
	generatePath        = "/api/generate"
)

// RelayRequest is the body accepted by the relay.
type RelayRequest struct {
	Model string `json:"model"`
	Data  any    `json:"data"`
}

type RelayOpts struct {
	BaseURL string
	// Timeout applies to one attempt, not to the whole retry sequence.
	Timeout time.Duration
}

// RelayClient posts generation requests to the relay, which adds the API
// key and forwards them to Gemini. It makes exactly one attempt per call.
type RelayClient struct {
	httpClient *resty.Client
	baseURL    string
}

// Ensure RelayClient implements Transport
var _ Transport = (*RelayClient)(nil)

func NewRelayClient(opts RelayOpts) *RelayClient {
	c := RelayClient{baseURL: DefaultRelayURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRelayTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &c
}

// Generate implements Transport.
func (c *RelayClient) Generate(ctx context.Context, model string, data any) (*genai.GenerateContentResponse, error) {
	started := time.Now()
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(RelayRequest{Model: model, Data: data}).
		Post(generatePath)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &HTTPError{StatusCode: res.StatusCode(), Body: res.Body()}
	}

	var out genai.GenerateContentResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}
	log.Debug().Str("model", model).Dur("latency", time.Since(started)).Int("bytes", len(res.Body())).Msg("relay response received")
	return &out, nil
}
