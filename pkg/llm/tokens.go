package llm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// Every message carries a fixed framing overhead
	TokensPerMessage = 4
	TokensPerName    = 1
	TokensPerRequest = 3
)

var (
	tkmOnce  sync.Once
	tkm      atomic.Pointer[tiktoken.Tiktoken]
	tkmReady = make(chan struct{})
)

// loadEncoder fetches the BPE tables in the background. The first load may
// download them, so callers never wait on it.
func loadEncoder() {
	tkmOnce.Do(func() {
		go func() {
			defer close(tkmReady)
			if enc, err := tiktoken.EncodingForModel("gpt-4o"); err == nil {
				tkm.Store(enc)
			}
		}()
	})
}

// WarmEncoder starts loading the encoder and waits at most timeout for it.
// It reports whether exact counting is available.
func WarmEncoder(timeout time.Duration) bool {
	loadEncoder()
	select {
	case <-tkmReady:
	case <-time.After(timeout):
	}
	return tkm.Load() != nil
}

// EstimateTokens counts tokens for text. Until the encoder is loaded, or when
// it cannot be, a chars/4 heuristic is used.
func EstimateTokens(text string) int {
	loadEncoder()
	return countTokens(tkm.Load(), text)
}

func countTokens(enc *tiktoken.Tiktoken, text string) int {
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// EstimateUsage fills usage for backends that do not report it.
func EstimateUsage(history []Message, reply string) Usage {
	prompt := TokensPerRequest
	for _, msg := range history {
		prompt += TokensPerMessage + TokensPerName + EstimateTokens(msg.Content)
	}
	completion := EstimateTokens(reply)
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
