package state

import (
	"context"
	"testing"

	"game-exploration-be/pkg/exploration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   string
		want    State
		wantErr bool
	}{
		{"explore from idle", Idle, EventExplore, ExploreOptions, false},
		{"preview side branch", ExploreOptions, EventBeginPreview, Previewing, false},
		{"preview returns", Previewing, EventEndPreview, ExploreOptions, false},
		{"select from options", ExploreOptions, EventSelect, Committed, false},
		{"select from previewing", Previewing, EventSelect, Committed, false},
		{"iterate from committed", Committed, EventIterate, Iterating, false},
		{"iterate is idempotent", Iterating, EventIterate, Iterating, false},
		{"finish from iterating", Iterating, EventFinish, MemoryWriting, false},
		{"memory written", MemoryWriting, EventMemoryWritten, Stable, false},
		{"abort finish", MemoryWriting, EventAbortFinishCommitted, Committed, false},
		{"iterate while exploring", ExploreOptions, EventIterate, ExploreOptions, true},
		{"finish while exploring", ExploreOptions, EventFinish, ExploreOptions, true},
		{"select twice", Committed, EventSelect, Committed, true},
		{"nothing while memory writing", MemoryWriting, EventIterate, MemoryWriting, true},
		{"stable is terminal", Stable, EventIterate, Stable, true},
		{"preview from committed", Committed, EventBeginPreview, Committed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(context.Background(), tt.from, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, exploration.ErrPrecondition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RejectsUnknownState(t *testing.T) {
	_, err := New(State("sleeping"))
	assert.ErrorIs(t, err, exploration.ErrPrecondition)
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(Iterating, "iterate", Committed, Iterating))
	assert.ErrorIs(t, Require(ExploreOptions, "iterate", Committed, Iterating), exploration.ErrPrecondition)
	assert.True(t, Resting(Stable))
	assert.False(t, Resting(Previewing))
}
