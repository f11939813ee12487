// Package llmtest provides a scripted completion provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"game-exploration-be/pkg/llm"
)

var ErrScriptExhausted = errors.New("llmtest: no scripted reply left")

// Reply is one scripted turn. Err is returned instead of a completion when set.
type Reply struct {
	Completion llm.Completion
	Err        error
}

func Text(content string) Reply {
	return Reply{Completion: llm.Completion{Content: content}}
}

func ToolCall(id, name, arguments string) Reply {
	return Reply{Completion: llm.Completion{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: arguments}}}}
}

func Fail(err error) Reply {
	return Reply{Err: err}
}

// Request is what the provider received on one call.
type Request struct {
	History []llm.Message
	Options llm.Options
}

// Provider replays the replies given to New in order. When the queue is empty it asks
// Responder, if set.
type Provider struct {
	mu        sync.Mutex
	queue     []Reply
	requests  []Request
	Responder func(history []llm.Message, opts *llm.Options) (*llm.Completion, error)
}

func New(replies ...Reply) *Provider {
	return &Provider{queue: replies}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Completion, error) {
	opts := llm.ApplyOptions(options...)

	p.mu.Lock()
	p.requests = append(p.requests, Request{History: append([]llm.Message(nil), history...), Options: *opts})
	var next *Reply
	if len(p.queue) > 0 {
		r := p.queue[0]
		p.queue = p.queue[1:]
		next = &r
	}
	responder := p.Responder
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if next == nil {
		if responder == nil {
			return nil, ErrScriptExhausted
		}
		return responder(history, opts)
	}
	if next.Err != nil {
		return nil, next.Err
	}
	c := next.Completion
	return &c, nil
}

func (p *Provider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
