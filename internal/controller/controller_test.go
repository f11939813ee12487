package controller_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"game-exploration-be/internal/controller"
	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/service"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// spanCapture records the request span found in the context handed to a service.
type spanCapture struct {
	seen trace.SpanContext
}

type explorationStub struct {
	service.IExplorationService
	*spanCapture
}

func (s explorationStub) GetActiveSession(ctx context.Context, projectId uuid.UUID) (*dto.ActiveSessionResponse, error) {
	s.seen = trace.SpanContextFromContext(ctx)
	return &dto.ActiveSessionResponse{}, nil
}

type versionStub struct {
	service.IVersionService
	*spanCapture
}

func (s versionStub) List(ctx context.Context, projectId uuid.UUID) ([]*dto.ProjectVersionResponse, error) {
	s.seen = trace.SpanContextFromContext(ctx)
	return []*dto.ProjectVersionResponse{}, nil
}

func TestControllers_PassRequestSpanToServices(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	capture := &spanCapture{}
	app := fiber.New()
	app.Use(otelfiber.Middleware(otelfiber.WithTracerProvider(tp)))
	api := app.Group("/api/v1")
	controller.NewExplorationController(explorationStub{spanCapture: capture}, nil).RegisterRoutes(api)
	controller.NewVersionController(versionStub{spanCapture: capture}).RegisterRoutes(api)

	project := uuid.NewString()
	for _, path := range []string{
		"/api/v1/projects/" + project + "/exploration/active",
		"/api/v1/projects/" + project + "/versions",
	} {
		t.Run(path, func(t *testing.T) {
			capture.seen = trace.SpanContext{}

			resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			require.True(t, capture.seen.IsValid(), "service context carries the request span")
			ended := recorder.Ended()
			require.NotEmpty(t, ended)
			assert.Equal(t, ended[len(ended)-1].SpanContext().TraceID(), capture.seen.TraceID())
		})
	}
}
