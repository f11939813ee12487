package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"game-exploration-be/pkg/llm"
)

const chatPath = "/api/chat"

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Format   string      `json:"format,omitempty"`
	Tools    []tool      `json:"tools,omitempty"`
	Options  *runOptions `json:"options,omitempty"`
}

type message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type toolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type runOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string  `json:"model"`
	Message         message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	payload, err := json.Marshal(o.buildRequest(history, llm.ApplyOptions(opts...)))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return toCompletion(parsed, history), nil
}

func (o *OllamaProvider) buildRequest(history []llm.Message, options *llm.Options) chatRequest {
	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}
	req := chatRequest{
		Model:    model,
		Messages: make([]message, len(history)),
		Options:  &runOptions{Temperature: options.Temperature, NumPredict: options.MaxTokens},
	}
	if options.JSONMode {
		req.Format = "json"
	}

	for i, m := range history {
		role := m.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		out := message{Role: role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			var call toolCall
			call.Function.Name = tc.Name
			call.Function.Arguments = json.RawMessage(argumentsOrEmpty(tc.Arguments))
			out.ToolCalls = append(out.ToolCalls, call)
		}
		req.Messages[i] = out
	}

	for _, t := range options.Tools {
		req.Tools = append(req.Tools, tool{
			Type:     "function",
			Function: toolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	return req
}

func toCompletion(resp chatResponse, history []llm.Message) *llm.Completion {
	c := &llm.Completion{
		Model:   resp.Model,
		Content: resp.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
	// Ollama assigns no call ids; the index is unique within a turn.
	for i, tc := range resp.Message.ToolCalls {
		c.ToolCalls = append(c.ToolCalls, llm.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: string(argumentsOrEmpty(string(tc.Function.Arguments))),
		})
	}
	if c.Usage.TotalTokens == 0 {
		c.Usage = llm.EstimateUsage(history, c.Content)
	}
	return c
}

func argumentsOrEmpty(args string) []byte {
	if args == "" || args == "null" {
		return []byte("{}")
	}
	return []byte(args)
}
