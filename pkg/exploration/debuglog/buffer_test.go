package debuglog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_EvictsOldest(t *testing.T) {
	b := New(3)
	for i := 1; i <= 5; i++ {
		b.Append(Entry{Label: fmt.Sprintf("call-%d", i)})
	}

	got := b.List()
	require.Len(t, got, 3)
	assert.Equal(t, "call-3", got[0].Label)
	assert.Equal(t, "call-5", got[2].Label)
	assert.Equal(t, uint64(5), got[2].Seq)
	assert.Equal(t, 3, b.Len())
}

func TestBuffer_PartialAndClear(t *testing.T) {
	b := New(0)
	assert.Equal(t, DefaultCapacity, b.Capacity())
	b.Append(Entry{Label: "A:decompose(fresh)"})
	assert.Len(t, b.List(), 1)

	b.Clear()
	assert.Empty(t, b.List())
	b.Append(Entry{Label: "B:branches"})
	assert.Equal(t, "B:branches", b.List()[0].Label)
}

func TestBuffer_ListIsSnapshot(t *testing.T) {
	b := New(2)
	b.Append(Entry{Label: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	snap := b.List()
	snap[0].Messages[0].Content = "mutated"
	assert.Equal(t, "hi", b.List()[0].Messages[0].Content)
}

func TestBuffer_ConcurrentAppend(t *testing.T) {
	b := New(50)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Append(Entry{Label: fmt.Sprintf("%d", i)})
			_ = b.List()
		}(i)
	}
	wg.Wait()

	got := b.List()
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Seq, got[i].Seq)
	}
}
