// Package apiclient is a thin client for the exploration REST API used by explorectl.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/pkg/serverutils"

	"github.com/google/uuid"
)

// ApiError is a non-2xx answer from the server.
type ApiError struct {
	Status    int
	Detail    string
	Retryable bool
}

func (e *ApiError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%d: %s (retryable)", e.Status, e.Detail)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) ProviderLog(ctx context.Context) (*dto.ProviderLogResponse, error) {
	return do[*dto.ProviderLogResponse](ctx, c, http.MethodGet, "/debug/provider_log")
}

func (c *Client) ClearProviderLog(ctx context.Context) error {
	_, err := do[map[string]string](ctx, c, http.MethodDelete, "/debug/provider_log")
	return err
}

func (c *Client) MemoryNotes(ctx context.Context, projectId uuid.UUID) ([]*dto.MemoryNoteResponse, error) {
	return do[[]*dto.MemoryNoteResponse](ctx, c, http.MethodGet, fmt.Sprintf("/projects/%s/exploration/memory_notes", projectId))
}

func (c *Client) SessionState(ctx context.Context, projectId uuid.UUID, sessionId uint) (*dto.ExplorationStateResponse, error) {
	return do[*dto.ExplorationStateResponse](ctx, c, http.MethodGet, fmt.Sprintf("/projects/%s/exploration/state/%d", projectId, sessionId))
}

func (c *Client) ActiveSession(ctx context.Context, projectId uuid.UUID) (*dto.ActiveSessionResponse, error) {
	return do[*dto.ActiveSessionResponse](ctx, c, http.MethodGet, fmt.Sprintf("/projects/%s/exploration/active", projectId))
}

func (c *Client) Versions(ctx context.Context, projectId uuid.UUID) ([]*dto.ProjectVersionResponse, error) {
	return do[[]*dto.ProjectVersionResponse](ctx, c, http.MethodGet, fmt.Sprintf("/projects/%s/versions", projectId))
}

func do[T any](ctx context.Context, c *Client, method, path string) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return zero, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("error reading response: %w", err)
	}

	var res serverutils.BaseResponse[T]
	if err := json.Unmarshal(body, &res); err != nil {
		if resp.StatusCode >= 400 {
			return zero, &ApiError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
		}
		return zero, fmt.Errorf("error decoding response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return zero, &ApiError{Status: resp.StatusCode, Detail: res.Detail, Retryable: res.Retryable}
	}
	return res.Data, nil
}
