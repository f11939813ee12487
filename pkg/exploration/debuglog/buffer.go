// Package debuglog keeps the last N completion provider interactions in memory.
package debuglog

import (
	"encoding/json"
	"sync"
	"time"

	"game-exploration-be/pkg/llm"
)

const DefaultCapacity = 50

type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
}

type ToolCallRecord struct {
	ID        string `json:"id"`
	Function  string `json:"function"`
	Arguments string `json:"arguments"`
}

// Entry records one stage call including all its tool rounds.
type Entry struct {
	Seq         uint64           `json:"seq"`
	Label       string           `json:"label"`
	Model       string           `json:"model,omitempty"`
	Attempt     int              `json:"attempt"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	DurationMS  int64            `json:"duration_ms"`
	Messages    []Message        `json:"messages"`
	ToolCalls   []ToolCallRecord `json:"tool_calls"`
	RawResponse string           `json:"raw_response"`
	Parsed      json.RawMessage  `json:"parsed,omitempty"`
	Usage       llm.Usage        `json:"usage"`
	Error       string           `json:"error,omitempty"`
}

// Buffer is a fixed-capacity ring. Appends past capacity evict the oldest entry.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	next     int
	full     bool
	seq      uint64
	capacity int
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	e.Seq = b.seq
	b.entries[b.next] = clone(e)
	b.next = (b.next + 1) % b.capacity
	if b.next == 0 {
		b.full = true
	}
}

// List returns a snapshot ordered oldest first.
func (b *Buffer) List() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ordered []Entry
	if b.full {
		ordered = append(ordered, b.entries[b.next:]...)
	}
	ordered = append(ordered, b.entries[:b.next]...)

	out := make([]Entry, len(ordered))
	for i, e := range ordered {
		out[i] = clone(e)
	}
	return out
}

func clone(e Entry) Entry {
	e.Messages = append([]Message(nil), e.Messages...)
	e.ToolCalls = append([]ToolCallRecord(nil), e.ToolCalls...)
	e.Parsed = append(json.RawMessage(nil), e.Parsed...)
	return e
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return b.capacity
	}
	return b.next
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make([]Entry, b.capacity)
	b.next = 0
	b.full = false
}
