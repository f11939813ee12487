// Package stage runs one pipeline stage against the completion provider: the
// memory tool loop, bounded retries, per-call timeouts, debug capture and tracing.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/debuglog"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxToolRounds bounds the tool round-trips inside one stage call.
	MaxToolRounds = 3

	toolBudgetExhausted = "Tool budget exhausted. Answer now with the final JSON object and no further tool calls."
)

const module = "EXPLORATION"

// DefaultTemperature applies when Config.Temperature is zero.
const DefaultTemperature = 0.7

type Config struct {
	// Model overrides the provider default when set.
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
}

// ToolHandler executes one tool call and returns the text fed back to the model.
type ToolHandler func(ctx context.Context, call llm.ToolCall) (string, error)

// Request describes one stage call.
type Request struct {
	Label     string
	System    string
	User      string
	MaxTokens int
	// Tools are offered to the model; Handler must be set when Tools is non-empty.
	Tools   []llm.Tool
	Handler ToolHandler
	// Decode turns the final reply into the stage result. The returned value is
	// recorded in the debug log even when an error is returned alongside it.
	Decode func(raw string) (interface{}, error)
	// Fields are added to every log line of this call.
	Fields map[string]interface{}
}

type Runner struct {
	provider llm.LLMProvider
	debug    *debuglog.Buffer
	log      logger.ILogger
	tracer   trace.Tracer
	cfg      Config
}

func NewRunner(provider llm.LLMProvider, debug *debuglog.Buffer, log logger.ILogger, cfg Config) *Runner {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &Runner{
		provider: provider,
		debug:    debug,
		log:      log,
		tracer:   otel.Tracer("game-exploration-be/stage"),
		cfg:      cfg,
	}
}

// Do runs the request with retries. Provider and malformed-output failures are
// retried; anything else is returned as soon as it happens.
func (r *Runner) Do(ctx context.Context, req Request) error {
	var lastErr error
	err := RetryWithBackoff(ctx, RetryConfig{
		MaxRetries: r.cfg.MaxRetries,
		BaseDelay:  r.cfg.BaseDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			r.log.Warn(module, "Stage attempt failed, retrying", r.fields(req, map[string]interface{}{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			}))
		},
	}, exploration.IsRetryable, func(attempt int) error {
		lastErr = r.attempt(ctx, req, attempt)
		return lastErr
	})
	if err != nil {
		r.log.Error(module, "Stage failed", r.fields(req, map[string]interface{}{"error": err.Error()}))
		return fmt.Errorf("%s: %w", req.Label, err)
	}
	return nil
}

func (r *Runner) attempt(ctx context.Context, req Request, attempt int) (err error) {
	ctx, span := r.tracer.Start(ctx, "stage."+req.Label, trace.WithAttributes(
		attribute.String("stage.label", req.Label),
		attribute.Int("stage.attempt", attempt),
	))
	defer span.End()

	entry := debuglog.Entry{
		Label:     req.Label,
		Model:     r.cfg.Model,
		Attempt:   attempt,
		StartedAt: time.Now(),
		ToolCalls: []debuglog.ToolCallRecord{},
	}
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: req.System},
		{Role: llm.RoleUser, Content: req.User},
	}
	defer func() {
		entry.FinishedAt = time.Now()
		entry.DurationMS = entry.FinishedAt.Sub(entry.StartedAt).Milliseconds()
		entry.Messages = toDebugMessages(history)
		if err != nil {
			entry.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("llm.total_tokens", entry.Usage.TotalTokens))
		if r.debug != nil {
			r.debug.Append(entry)
		}
		r.log.Info(module, "Stage call finished", r.fields(req, map[string]interface{}{
			"attempt":     attempt,
			"duration_ms": entry.DurationMS,
			"tool_calls":  len(entry.ToolCalls),
			"ok":          err == nil,
		}))
	}()

	completion, err := r.chat(ctx, history, req, len(req.Tools) > 0)
	if err != nil {
		return err
	}
	addUsage(&entry.Usage, completion.Usage)

	for rounds := 0; len(completion.ToolCalls) > 0; rounds++ {
		history = append(history, llm.Message{Role: llm.RoleAssistant, Content: completion.Content, ToolCalls: completion.ToolCalls})
		exhausted := rounds >= MaxToolRounds
		for _, call := range completion.ToolCalls {
			entry.ToolCalls = append(entry.ToolCalls, debuglog.ToolCallRecord{ID: call.ID, Function: call.Name, Arguments: call.Arguments})
			result := toolBudgetExhausted
			if !exhausted {
				result = r.runTool(ctx, req, call)
			}
			history = append(history, llm.Message{Role: llm.RoleTool, Content: result, ToolCallID: call.ID})
		}

		completion, err = r.chat(ctx, history, req, !exhausted)
		if err != nil {
			return err
		}
		addUsage(&entry.Usage, completion.Usage)
		if exhausted {
			break
		}
	}

	entry.RawResponse = completion.Content
	history = append(history, llm.Message{Role: llm.RoleAssistant, Content: completion.Content})

	if len(completion.ToolCalls) > 0 {
		return fmt.Errorf("%w: model kept requesting tools after the final round", exploration.ErrMalformedOutput)
	}
	if req.Decode == nil {
		return nil
	}
	parsed, err := req.Decode(completion.Content)
	if parsed != nil {
		if raw, mErr := json.Marshal(parsed); mErr == nil {
			entry.Parsed = raw
		}
	}
	return err
}

func (r *Runner) chat(ctx context.Context, history []llm.Message, req Request, withTools bool) (*llm.Completion, error) {
	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	opts := []llm.Option{llm.WithJSONMode(), llm.WithTemperature(r.cfg.Temperature)}
	if r.cfg.Model != "" {
		opts = append(opts, llm.WithModel(r.cfg.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(req.MaxTokens))
	}
	if withTools {
		opts = append(opts, llm.WithTools(req.Tools...))
	}

	completion, err := r.provider.Chat(callCtx, history, opts...)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s: %v", exploration.ErrProvider, r.cfg.Timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", exploration.ErrProvider, err)
	}
	if completion == nil {
		return nil, fmt.Errorf("%w: empty completion", exploration.ErrProvider)
	}
	return completion, nil
}

func (r *Runner) runTool(ctx context.Context, req Request, call llm.ToolCall) string {
	if req.Handler == nil {
		return fmt.Sprintf("Tool %q is not available.", call.Name)
	}
	result, err := req.Handler(ctx, call)
	if err != nil {
		r.log.Warn(module, "Tool call failed", r.fields(req, map[string]interface{}{
			"tool":  call.Name,
			"error": err.Error(),
		}))
		return "Tool error: " + err.Error()
	}
	return result
}

func (r *Runner) fields(req Request, extra map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"label": req.Label}
	for k, v := range req.Fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Run decodes the stage reply into T, then applies check. check may return
// an error wrapping ErrMalformedOutput to force a retry.
func Run[T any](ctx context.Context, r *Runner, req Request, check func(*T) error) (*T, error) {
	var out *T
	req.Decode = func(raw string) (interface{}, error) {
		v := new(T)
		if err := schema.Decode(raw, v); err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(v); err != nil {
				return v, err
			}
		}
		out = v
		return v, nil
	}
	if err := r.Do(ctx, req); err != nil {
		return nil, err
	}
	return out, nil
}

// RunFiles runs a code-generation stage whose reply is a file map.
func RunFiles(ctx context.Context, r *Runner, req Request, check func(schema.FileMap) error) (schema.FileMap, error) {
	var out schema.FileMap
	req.Decode = func(raw string) (interface{}, error) {
		files, err := schema.DecodeFileMap(raw)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(files); err != nil {
				return files, err
			}
		}
		out = files
		return files, nil
	}
	if err := r.Do(ctx, req); err != nil {
		return nil, err
	}
	return out, nil
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}

func toDebugMessages(history []llm.Message) []debuglog.Message {
	out := make([]debuglog.Message, len(history))
	for i, m := range history {
		out[i] = debuglog.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, ToolCalls: m.ToolCalls}
	}
	return out
}
