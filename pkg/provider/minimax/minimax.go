// Package minimax adapts the MiniMax HTTP API to the text generation and
// speech synthesis capabilities.
package minimax

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL     = "https://api.minimax.io/v1"
	DefaultModel       = "MiniMax-Text-01"
	DefaultSpeechModel = "speech-02-hd"
	DefaultVoice       = "female-shaonv"

	chatEndpoint = "/text/chatcompletion_v2"
	t2aEndpoint  = "/t2a_v2"
)

// Status codes in base_resp that are worth retrying (rate limits, server busy).
var transientCodes = map[int]bool{1000: true, 1001: true, 1002: true, 1039: true}

// Client implements provider.TextGenerator and provider.SpeechSynthesizer.
type Client struct {
	http        *resty.Client
	apiKey      string
	groupID     string
	model       string
	speechModel string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
		}
	}
}

// WithGroupID sets the account group sent with synthesis requests.
func WithGroupID(groupID string) Option {
	return func(c *Client) { c.groupID = groupID }
}

// WithModel sets the chat model used when a node does not name one.
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
		http:        resty.New().SetBaseURL(DefaultBaseURL),
		apiKey:      apiKey,
		model:       DefaultModel,
		speechModel: DefaultSpeechModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

func (b baseResp) err() error {
	if b.StatusCode == 0 {
		return nil
	}
	err := fmt.Errorf("minimax status %d: %s", b.StatusCode, b.StatusMsg)
	if transientCodes[b.StatusCode] {
		return provider.Transient(err)
	}
	return err
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   uint          `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	BaseResp baseResp `json:"base_resp"`
}

// GenerateText calls chatcompletion_v2. MiniMax has no knowledge base
// parameter, so the reference is sent as a system message.
func (c *Client) GenerateText(ctx context.Context, req provider.TextRequest) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if req.KnowledgeBaseRef != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: "knowledge_base: " + req.KnowledgeBaseRef})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	var out chatResponse
	if err := c.post(ctx, chatEndpoint, nil, body, &out); err != nil {
		return "", err
	}
	if err := out.BaseResp.err(); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in chat completion response")
	}
	return out.Choices[0].Message.Content, nil
}

type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
	Emotion string  `json:"emotion,omitempty"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type t2aRequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	Stream       bool         `json:"stream"`
	OutputFormat string       `json:"output_format"`
	VoiceSetting voiceSetting `json:"voice_setting"`
	AudioSetting audioSetting `json:"audio_setting"`
}

type t2aResponse struct {
	Data struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
	ExtraInfo struct {
		AudioFormat string `json:"audio_format"`
	} `json:"extra_info"`
	BaseResp baseResp `json:"base_resp"`
}

// SynthesizeSpeech calls t2a_v2 asking for a URL to the rendered audio.
func (c *Client) SynthesizeSpeech(ctx context.Context, req provider.SpeechRequest) (domain.AudioRef, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.AudioRef{}, errors.New("nothing to synthesize")
	}

	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	body := t2aRequest{
		Model:        c.speechModel,
		Text:         req.Text,
		OutputFormat: "url",
		VoiceSetting: voiceSetting{
			VoiceID: voice,
			Speed:   orDefault(req.Speed, 1),
			Vol:     orDefault(req.Vol, 1),
			Pitch:   req.Pitch,
			Emotion: req.Emotion,
		},
		AudioSetting: audioSetting{SampleRate: 32000, Bitrate: 128000, Format: "mp3", Channel: 1},
	}

	var query map[string]string
	if c.groupID != "" {
		query = map[string]string{"GroupId": c.groupID}
	}

	var out t2aResponse
	if err := c.post(ctx, t2aEndpoint, query, body, &out); err != nil {
		return domain.AudioRef{}, err
	}
	if err := out.BaseResp.err(); err != nil {
		return domain.AudioRef{}, err
	}
	if out.Data.Audio == "" {
		return domain.AudioRef{}, errors.New("synthesis returned no audio")
	}

	format := out.ExtraInfo.AudioFormat
	if format == "" {
		format = body.AudioSetting.Format
	}
	return domain.AudioRef{URL: out.Data.Audio, MimeType: mimeType(format)}, nil
}

func (c *Client) post(ctx context.Context, endpoint string, query map[string]string, body, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetQueryParams(query).
		SetBody(body).
		SetResult(result).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("minimax request failed: %w", err)
	}
	if resp.IsError() {
		return &provider.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func mimeType(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "pcm":
		return "audio/pcm"
	default:
		return "application/octet-stream"
	}
}
