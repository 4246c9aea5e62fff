// Package openai adapts the OpenAI HTTP API to the text generation and speech
// transcription capabilities.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL            = "https://api.openai.com/v1"
	DefaultModel              = "gpt-4o-mini"
	DefaultTranscriptionModel = "whisper-1"

	chatCompletionsEndpoint = "/chat/completions"
	transcriptionsEndpoint  = "/audio/transcriptions"
)

// Client implements provider.TextGenerator and provider.SpeechTranscriber.
type Client struct {
	http               *resty.Client
	apiKey             string
	model              string
	transcriptionModel string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
		}
	}
}

// WithModel sets the model used when a node does not name one.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = resty.NewWithClient(hc).SetBaseURL(base)
	}
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		http:               resty.New().SetBaseURL(DefaultBaseURL),
		apiKey:             apiKey,
		model:              DefaultModel,
		transcriptionModel: DefaultTranscriptionModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   uint              `json:"max_tokens,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateText calls the chat completions endpoint with a single user message.
func (c *Client) GenerateText(ctx context.Context, req provider.TextRequest) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if req.KnowledgeBaseRef != "" {
		body.Metadata = map[string]string{"knowledge_base_ref": req.KnowledgeBaseRef}
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(chatCompletionsEndpoint)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp.IsError() {
		return "", &provider.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in chat completion response")
	}
	return out.Choices[0].Message.Content, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// TranscribeSpeech downloads the referenced audio and uploads it for transcription.
func (c *Client) TranscribeSpeech(ctx context.Context, req provider.TranscriptionRequest) (string, error) {
	audio, err := c.download(ctx, req.Audio)
	if err != nil {
		return "", err
	}

	form := map[string]string{"model": c.transcriptionModel}
	if req.Language != "" {
		form["language"] = req.Language
	}

	var out transcriptionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetFileReader("file", fileName(req.Audio.URL), bytes.NewReader(audio)).
		SetFormData(form).
		SetResult(&out).
		Post(transcriptionsEndpoint)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	if resp.IsError() {
		return "", &provider.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return out.Text, nil
}

func (c *Client) download(ctx context.Context, ref domain.AudioRef) ([]byte, error) {
	if ref.URL == "" {
		return nil, errors.New("audio reference has no url")
	}
	resp, err := c.http.R().SetContext(ctx).Get(ref.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	if resp.IsError() {
		return nil, &provider.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

func fileName(rawURL string) string {
	name := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return "audio.mp3"
	}
	return name
}
