// Package cartesia provides a tts.Synthesizer backed by the Cartesia
// bytes API (https://docs.cartesia.ai).
package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL    = "https://api.cartesia.ai"
	defaultModel      = "sonic-english"
	defaultVoice      = "a0e99841-438c-4a64-b679-ae501e7d6091"
	defaultLanguage   = "en"
	defaultSampleRate = 44100

	// apiVersion is the Cartesia-Version header value the request format
	// is written against.
	apiVersion = "2024-06-10"
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the synthesis model (e.g., "sonic-english").
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithVoice sets the Cartesia voice ID.
func WithVoice(voiceID string) Option {
	return func(c *Client) {
		c.voice = voiceID
	}
}

// WithLanguage sets the synthesis language code.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

// WithSampleRate sets the output sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(c *Client) {
		c.sampleRate = rate
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Client implements tts.Synthesizer using the Cartesia bytes endpoint.
// Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	voice      string
	language   string
	sampleRate int
	httpClient *http.Client
}

// New creates a Cartesia Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("cartesia: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		voice:      defaultVoice,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// bytesRequest is the JSON body of a POST /tts/bytes call.
type bytesRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
	Language     string       `json:"language"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize implements tts.Synthesizer. The returned reader streams WAV
// audio (pcm_f32le) as it arrives from the API.
func (c *Client) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	body, err := json.Marshal(bytesRequest{
		ModelID:    c.model,
		Transcript: text,
		Voice:      voiceSpec{Mode: "id", ID: c.voice},
		OutputFormat: outputFormat{
			Container:  "wav",
			Encoding:   "pcm_f32le",
			SampleRate: c.sampleRate,
		},
		Language: c.language,
	})
	if err != nil {
		return nil, fmt.Errorf("cartesia: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cartesia: build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia: request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("cartesia: synthesis failed: status %d: %s", resp.StatusCode, msg)
	}
	return resp.Body, nil
}
