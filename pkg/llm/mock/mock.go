// Package mock provides a scripted llm.Provider for tests and offline runs.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/pkg/llm"
)

// fragmentSize is deliberately small and unaligned with word boundaries so
// consumers get realistic mid-word streaming deltas.
const fragmentSize = 7

// Provider replays a fixed list of replies, one per completion call, and
// records every request it receives. After the script runs out the last
// reply repeats. Safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	replies  []string
	next     int
	requests []llm.CompletionRequest
}

// New returns a Provider that answers with the given replies in order.
// With no replies every completion returns "Okay.".
func New(replies ...string) *Provider {
	if len(replies) == 0 {
		replies = []string{"Okay."}
	}
	return &Provider{replies: replies}
}

// StreamCompletion implements llm.Provider. The scripted reply is emitted in
// small fragments ending with a "stop" chunk.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	reply := p.take(req)

	ch := make(chan llm.Chunk, 8)
	go func() {
		defer close(ch)
		for len(reply) > 0 {
			n := fragmentSize
			if n > len(reply) {
				n = len(reply)
			}
			select {
			case ch <- llm.Chunk{Text: reply[:n]}:
			case <-ctx.Done():
				return
			}
			reply = reply[n:]
		}
		select {
		case ch <- llm.Chunk{FinishReason: "stop"}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: p.take(req)}, nil
}

// Requests returns a copy of every request seen so far, in order.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) take(req llm.CompletionRequest) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	reply := p.replies[p.next]
	if p.next < len(p.replies)-1 {
		p.next++
	}
	return reply
}
