package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens_HeuristicWithoutEncoder(t *testing.T) {
	assert.Equal(t, 0, countTokens(nil, ""))
	assert.Equal(t, 1, countTokens(nil, "abc"))
	assert.Equal(t, 2, countTokens(nil, "abcdefgh"))
}

func TestWarmEncoder_ReturnsWithinTimeout(t *testing.T) {
	start := time.Now()
	WarmEncoder(0)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEstimateTokens_DoesNotWaitForEncoder(t *testing.T) {
	done := make(chan int, 1)
	go func() { done <- EstimateTokens("hello world") }()

	select {
	case n := <-done:
		assert.Positive(t, n)
	case <-time.After(time.Second):
		t.Fatal("estimate blocked on encoder load")
	}
}
