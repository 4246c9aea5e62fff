// Package webhook forwards action nodes to an HTTP endpoint.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one webhook request.
const DefaultTimeout = 15 * time.Second

// Request is the JSON body posted for every action.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Backend implements ports.ActionBackend by POSTing to a single URL.
// A 2xx answer's JSON body becomes the action result; 5xx and 429 answers are
// reported as transient so the engine's retry policy applies.
type Backend struct {
	client *resty.Client
	url    string
}

// Option configures the Backend.
type Option func(*Backend)

// WithHeader adds a header to every request, e.g. an Authorization token.
func WithHeader(key, value string) Option {
	return func(b *Backend) {
		b.client.SetHeader(key, value)
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.client.SetTimeout(d)
		}
	}
}

// New creates a backend posting to url.
func New(url string, opts ...Option) (*Backend, error) {
	if url == "" {
		return nil, errors.New("webhook url is required")
	}
	b := &Backend{
		client: resty.New().
			SetTimeout(DefaultTimeout).
			SetHeader("Content-Type", "application/json"),
		url: url,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Invoke posts the action and decodes the answer.
func (b *Backend) Invoke(ctx context.Context, actionType string, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}

	var out any
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(Request{Action: actionType, Params: params}).
		SetResult(&out).
		Post(b.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, provider.Transient(fmt.Errorf("webhook request failed: %w", err))
	}
	if resp.IsError() {
		return nil, &provider.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	if out == nil && len(resp.Body()) > 0 {
		return resp.String(), nil
	}
	return out, nil
}
