package stage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/debuglog"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/llm"
	"game-exploration-be/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answer struct {
	Value string `json:"value" validate:"required"`
}

func newRunner(p llm.LLMProvider, retries int) (*Runner, *debuglog.Buffer) {
	buf := debuglog.New(10)
	return NewRunner(p, buf, logger.NewNopLogger(), Config{Model: "test", MaxRetries: retries, Timeout: time.Second}), buf
}

func echoTool(calls *[]string) ToolHandler {
	return func(ctx context.Context, call llm.ToolCall) (string, error) {
		*calls = append(*calls, call.Arguments)
		return "memory digest", nil
	}
}

func TestRun_PlainReply(t *testing.T) {
	p := llmtest.New(llmtest.Text("```json\n{\"value\":\"ok\"}\n```"))
	r, buf := newRunner(p, 0)

	out, err := Run[answer](context.Background(), r, Request{Label: "A:test", System: "sys", User: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)

	entries := buf.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "A:test", entries[0].Label)
	assert.JSONEq(t, `{"value":"ok"}`, string(entries[0].Parsed))
	assert.Len(t, entries[0].Messages, 3)
	assert.True(t, p.Requests()[0].Options.JSONMode)
	assert.Equal(t, DefaultTemperature, p.Requests()[0].Options.Temperature)
}

func TestRun_ToolLoopFeedsResultsBack(t *testing.T) {
	p := llmtest.New(
		llmtest.ToolCall("c1", "search_memory", `{"query":"runner"}`),
		llmtest.Text(`{"value":"after tool"}`),
	)
	r, buf := newRunner(p, 0)
	var seen []string

	out, err := Run[answer](context.Background(), r, Request{
		Label:   "B:test",
		Tools:   []llm.Tool{{Name: "search_memory"}},
		Handler: echoTool(&seen),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "after tool", out.Value)
	assert.Equal(t, []string{`{"query":"runner"}`}, seen)

	reqs := p.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].History[len(reqs[1].History)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Equal(t, "memory digest", last.Content)
	assert.Len(t, reqs[1].Options.Tools, 1)

	assert.Len(t, buf.List()[0].ToolCalls, 1)
}

func TestRun_ToolRoundsAreCapped(t *testing.T) {
	var replies []llmtest.Reply
	for i := 0; i < MaxToolRounds+1; i++ {
		replies = append(replies, llmtest.ToolCall(fmt.Sprintf("c%d", i), "search_memory", `{"query":"x"}`))
	}
	replies = append(replies, llmtest.Text(`{"value":"forced"}`))
	p := llmtest.New(replies...)
	r, _ := newRunner(p, 0)
	var seen []string

	out, err := Run[answer](context.Background(), r, Request{
		Label:   "A:test",
		Tools:   []llm.Tool{{Name: "search_memory"}},
		Handler: echoTool(&seen),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "forced", out.Value)
	assert.Len(t, seen, MaxToolRounds, "the last request is answered without running the tool")

	reqs := p.Requests()
	require.Len(t, reqs, MaxToolRounds+2)
	assert.Empty(t, reqs[len(reqs)-1].Options.Tools, "the final call has no tool access")
	for _, req := range reqs[:len(reqs)-1] {
		assert.NotEmpty(t, req.Options.Tools)
	}
}

func TestRun_RetriesMalformedThenSucceeds(t *testing.T) {
	p := llmtest.New(llmtest.Text("sorry, no json"), llmtest.Text(`{"value":"second"}`))
	r, buf := newRunner(p, 2)

	out, err := Run[answer](context.Background(), r, Request{Label: "C:test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out.Value)

	entries := buf.List()
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, 2, entries[1].Attempt)
}

func TestRun_ExhaustionKeepsLastKind(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		p := llmtest.New(llmtest.Fail(errors.New("down")), llmtest.Text(`{"value":""}`))
		r, _ := newRunner(p, 1)
		_, err := Run[answer](context.Background(), r, Request{Label: "D:test"}, nil)
		assert.ErrorIs(t, err, exploration.ErrMalformedOutput)
		assert.NotErrorIs(t, err, exploration.ErrProvider)
	})
	t.Run("provider", func(t *testing.T) {
		p := llmtest.New(llmtest.Text("junk"), llmtest.Fail(errors.New("down")))
		r, _ := newRunner(p, 1)
		_, err := Run[answer](context.Background(), r, Request{Label: "D:test"}, nil)
		assert.ErrorIs(t, err, exploration.ErrProvider)
		assert.True(t, exploration.IsRetryable(err))
	})
}

func TestRun_CheckErrorsAreNotRetried(t *testing.T) {
	p := llmtest.New(llmtest.Text(`{"value":"bad"}`), llmtest.Text(`{"value":"unused"}`))
	r, buf := newRunner(p, 3)

	_, err := Run[answer](context.Background(), r, Request{Label: "B:test"}, func(a *answer) error {
		return fmt.Errorf("%w: branch too similar", exploration.ErrConstraintViolation)
	})
	assert.ErrorIs(t, err, exploration.ErrConstraintViolation)
	assert.Equal(t, 1, p.Calls())
	assert.JSONEq(t, `{"value":"bad"}`, string(buf.List()[0].Parsed))
}

func TestRun_TimeoutIsProviderFailure(t *testing.T) {
	p := llmtest.New()
	p.Responder = func(history []llm.Message, opts *llm.Options) (*llm.Completion, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, context.DeadlineExceeded
	}
	buf := debuglog.New(5)
	r := NewRunner(p, buf, logger.NewNopLogger(), Config{Timeout: 10 * time.Millisecond})

	_, err := Run[answer](context.Background(), r, Request{Label: "E:test"}, nil)
	assert.ErrorIs(t, err, exploration.ErrProvider)
}

func TestRunFiles(t *testing.T) {
	p := llmtest.New(llmtest.Text(`{"index.html":"<html></html>"}`))
	r, _ := newRunner(p, 0)
	files, err := RunFiles(context.Background(), r, Request{Label: "E:customize"}, func(m schema.FileMap) error { return m.RequireEntry() })
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", files["index.html"])
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, RetryConfig{MaxRetries: 5, BaseDelay: time.Hour}, func(error) bool { return true }, func(int) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
