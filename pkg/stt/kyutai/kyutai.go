// Package kyutai provides an stt.Provider backed by a Kyutai STT streaming
// server (github.com/kyutai-labs/delayed-streams-modeling). It speaks the
// server's WebSocket JSON protocol: the client sends binary PCM frames and
// receives typed events, of which "Word" carries a decoded word and "Step"
// carries the pause-probability vector for one decoding step.
package kyutai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tablevox/tablevox/pkg/stt"
	"github.com/tablevox/tablevox/pkg/types"
)

const (
	defaultEndpoint   = "ws://127.0.0.1:8080/api/asr-streaming"
	defaultSampleRate = 24000
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithAPIKey sets the API key sent in the kyutai-api-key header.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithSampleRate sets the provider-level default audio sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// Provider implements stt.Provider against a Kyutai STT server.
type Provider struct {
	endpoint   string
	apiKey     string
	sampleRate int
}

// New creates a Provider for the given WebSocket endpoint. An empty endpoint
// selects the local default ws://127.0.0.1:8080/api/asr-streaming.
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("kyutai: invalid endpoint %q: %w", endpoint, err)
	}
	p := &Provider{
		endpoint:   endpoint,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens a streaming transcription session.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("kyutai: build URL: %w", err)
	}

	headers := http.Header{}
	if p.apiKey != "" {
		headers.Set("kyutai-api-key", p.apiKey)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("kyutai: dial: %w", err)
	}

	sess := &session{
		conn:   conn,
		words:  make(chan types.WordEvent, 64),
		pauses: make(chan types.PauseEvent, 64),
		audio:  make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg stt.StreamConfig) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}

	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// serverEvent is the JSON envelope of every message the server sends.
// "Word" events carry Text, "Step" events carry Prs; other types ("Ready",
// "Marker", "EndWord") are bookkeeping and carry nothing we consume.
type serverEvent struct {
	Type string    `json:"type"`
	Text string    `json:"text"`
	Prs  []float64 `json:"prs"`
}

// session is a live Kyutai streaming session. It implements stt.SessionHandle.
type session struct {
	conn   *websocket.Conn
	words  chan types.WordEvent
	pauses chan types.PauseEvent
	audio  chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// SendAudio queues a PCM audio chunk for delivery to the server.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("kyutai: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("kyutai: session is closed")
	}
}

// Words returns the channel of decoded word events.
func (s *session) Words() <-chan types.WordEvent { return s.words }

// Pauses returns the channel of pause probability events.
func (s *session) Pauses() <-chan types.PauseEvent { return s.pauses }

// Close terminates the session cleanly.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Signal end of stream, then drop the connection so the read loop's
		// blocked conn.Read returns before we wait on it. A close handshake
		// would hang here whenever the server is quiet.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"Marker","id":0}`))
		_ = s.conn.CloseNow()
		s.wg.Wait()
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to the
// server.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON events from the server and dispatches them to the
// words and pauses channels.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.words)
	defer close(s.pauses)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		word, pause, kind := parseServerEvent(msg, time.Now())
		switch kind {
		case eventWord:
			select {
			case s.words <- word:
			case <-s.done:
			}
		case eventPause:
			select {
			case s.pauses <- pause:
			case <-s.done:
			}
		}
	}
}

type eventKind int

const (
	eventIgnored eventKind = iota
	eventWord
	eventPause
)

// parseServerEvent parses one raw WebSocket message. arrival stamps word
// events with their wall-clock receipt time.
func parseServerEvent(data []byte, arrival time.Time) (types.WordEvent, types.PauseEvent, eventKind) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return types.WordEvent{}, types.PauseEvent{}, eventIgnored
	}

	switch ev.Type {
	case "Word":
		if ev.Text == "" {
			return types.WordEvent{}, types.PauseEvent{}, eventIgnored
		}
		return types.WordEvent{Text: ev.Text, ArrivalTime: arrival}, types.PauseEvent{}, eventWord
	case "Step":
		return types.WordEvent{}, types.PauseEvent{Probabilities: ev.Prs}, eventPause
	default:
		return types.WordEvent{}, types.PauseEvent{}, eventIgnored
	}
}
