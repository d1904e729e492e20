package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/pkg/deskerr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryService struct {
	mu   sync.Mutex
	asks []dto.AskQuestionRequest
}

func (s *fakeQueryService) CreateSession(context.Context, uuid.UUID, *dto.CreateQuerySessionRequest) (*dto.CreateQuerySessionResponse, error) {
	return &dto.CreateQuerySessionResponse{SessionId: uuid.NewString(), Kind: "handbook"}, nil
}

// Ask rejects everything as not ready, the way a session over a processing
// document would.
func (s *fakeQueryService) Ask(_ context.Context, _ uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error) {
	s.mu.Lock()
	s.asks = append(s.asks, *req)
	s.mu.Unlock()

	return &dto.AskQuestionResponse{
		UserTurn:  dto.QueryTurnResponse{Id: uuid.New(), Text: req.Question, IsUser: true},
		BotTurn:   dto.QueryTurnResponse{Id: uuid.New(), Text: "Your handbook is currently being processed. Please wait a few minutes and try again."},
		ErrorCode: string(deskerr.CodeNotReady),
	}, nil
}

func (s *fakeQueryService) History(context.Context, uuid.UUID, string) (*dto.QueryHistoryResponse, error) {
	return &dto.QueryHistoryResponse{}, nil
}

func (s *fakeQueryService) EndSession(context.Context, uuid.UUID, string) error {
	return nil
}

func (s *fakeQueryService) Suggestions(kind string) (*dto.SuggestedQuestionsResponse, error) {
	return &dto.SuggestedQuestionsResponse{Kind: kind}, nil
}

func (s *fakeQueryService) Health(context.Context) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Backend: "online"}, nil
}

func (s *fakeQueryService) askCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.asks)
}

func newQueryApp(svc *fakeQueryService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	userId := uuid.NewString()
	auth := func(ctx *fiber.Ctx) error {
		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
	NewQueryController(svc).RegisterRoutes(app.Group("/api"), auth)
	return app
}

func postAsk(t *testing.T, app *fiber.App, body map[string]interface{}) (int, serverutils.Response[dto.AskQuestionResponse]) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/query/v1/sessions/abc/ask", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out serverutils.Response[dto.AskQuestionResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestQueryController_AskPassesLongInputToEngine(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"long question", map[string]interface{}{"question": strings.Repeat("q", 4001)}},
		{"many options", map[string]interface{}{"question": "What is the grading system?", "options": []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}}},
		{"long custom prompt", map[string]interface{}{"question": "What is the grading system?", "custom_prompt": strings.Repeat("p", 1001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeQueryService{}

			status, out := postAsk(t, newQueryApp(svc), tt.body)

			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, 1, svc.askCount())
			assert.Equal(t, string(deskerr.CodeNotReady), out.Data.ErrorCode)
			assert.Equal(t, tt.body["question"], out.Data.UserTurn.Text)
			assert.Equal(t, out.Data.BotTurn.Text, out.Message)
		})
	}
}

func TestQueryController_AskUsesPathSession(t *testing.T) {
	svc := &fakeQueryService{}

	_, _ = postAsk(t, newQueryApp(svc), map[string]interface{}{"question": "What is the attendance policy?"})

	require.Equal(t, 1, svc.askCount())
	assert.Equal(t, "abc", svc.asks[0].SessionId)
}
