package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(baseURL, 5*time.Second, logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ", time.Second, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestClient_ProcessHandbook(t *testing.T) {
	handbookID := uuid.New()
	userID := uuid.New()

	var got processHandbookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process-handbook", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL+"/").ProcessHandbook(context.Background(), handbookID, userID)

	require.NoError(t, err)
	assert.Equal(t, handbookID.String(), got.HandbookId)
	assert.Equal(t, userID.String(), got.UserId)
}

func TestClient_ProcessSyllabus_ServerErrorIsRetryable(t *testing.T) {
	var got processSyllabusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process-syllabus", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	courseID := uuid.New()
	err := newTestClient(t, srv.URL).ProcessSyllabus(context.Background(), courseID, uuid.New(), "course-syllabi/a/b/c.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, deskerr.ErrRemoteFailure)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, courseID.String(), got.CourseId)
	assert.Equal(t, "course-syllabi/a/b/c.pdf", got.StoragePath)
}

func TestClient_Chat(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "sess-1", r.Header.Get("X-Session-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"Minimum attendance is 75%."}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL).Chat(context.Background(), ChatRequest{
		Message:   "[HANDBOOK QUERY] What is the attendance policy?",
		UserId:    "u1",
		SessionId: "sess-1",
		Context:   map[string]interface{}{"type": "handbook_query"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Minimum attendance is 75%.", reply.Text)
	assert.Equal(t, ShapeResponse, reply.Shape)
	assert.Equal(t, "[HANDBOOK QUERY] What is the attendance policy?", got.Message)
	assert.Equal(t, "handbook_query", got.Context["type"])
}

func TestClient_Chat_Non2xxWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"index not ready"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Chat(context.Background(), ChatRequest{Message: "q"})

	require.Error(t, err)
	assert.ErrorIs(t, err, deskerr.ErrRemoteFailure)
	assert.Equal(t, "Backend error (HTTP 500): index not ready", deskerr.MessageOf(err, ""))
}

func TestClient_Chat_SuccessFalseIsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"response":"partial answer","error":"vector index missing"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL).Chat(context.Background(), ChatRequest{Message: "q"})

	require.Error(t, err)
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, deskerr.ErrRemoteFailure)
	assert.Equal(t, "Backend error: vector index missing", deskerr.MessageOf(err, ""))
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestClient(t, url).Health(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, deskerr.ErrTransportConnect)
	assert.Equal(t, msgRefused, deskerr.MessageOf(err, ""))
	assert.True(t, IsRetryable(err))
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(t, srv.URL).Health(context.Background()))
}

func TestIsRetryable_ClientErrorsAreNot(t *testing.T) {
	err := deskerr.Wrap(deskerr.CodeRemoteFailure, "bad", &StatusError{StatusCode: http.StatusBadRequest})
	assert.False(t, IsRetryable(err))
	assert.False(t, IsRetryable(deskerr.New(deskerr.CodeValidation, "x")))
}
