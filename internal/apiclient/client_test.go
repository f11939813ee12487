package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SessionState(t *testing.T) {
	projectId := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/"+projectId.String()+"/exploration/state/7", r.URL.Path)
		_ = json.NewEncoder(w).Encode(serverutils.SuccessResponse("ok", dto.ExplorationStateResponse{
			SessionId: 7,
			State:     "committed",
		}))
	}))
	defer srv.Close()

	res, err := New(srv.URL + "/").SessionState(context.Background(), projectId, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), res.SessionId)
	assert.Equal(t, "committed", res.State)
}

func TestClient_ErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := serverutils.ErrorResponse(http.StatusServiceUnavailable, "completion provider failed: timeout")
		res.Retryable = true
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(res)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ProviderLog(context.Background())
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "completion provider failed: timeout", apiErr.Detail)
	assert.True(t, apiErr.Retryable)
	assert.Contains(t, apiErr.Error(), "retryable")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).ClearProviderLog(context.Background())
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Detail)
}
