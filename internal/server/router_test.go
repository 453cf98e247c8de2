package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinvector/ehrqa/internal/api/handlers"
	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQAService struct {
	mock.Mock
}

func (m *MockQAService) Ask(ctx context.Context, req service.QARequest) (*service.QAResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QAResponse), args.Error(1)
}

func newTestRouter(svc handlers.QAService, ready bool) http.Handler {
	return NewRouter(RouterConfig{
		QAHandler:  handlers.NewQAHandler(svc),
		IndexReady: func() bool { return ready },
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockQAService), true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data["status"])
	assert.Equal(t, "ready", body.Data["index"])
}

func TestRouter_HealthIndexNotBuilt(t *testing.T) {
	router := newTestRouter(new(MockQAService), false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_built", body.Data["index"])
}

func TestRouter_Ask(t *testing.T) {
	svc := new(MockQAService)
	svc.On("Ask", mock.Anything, service.QARequest{Question: "is the heart enlarged?", Mode: domain.ModeHybrid}).
		Return(&service.QAResponse{
			Answer:    "No, heart size is normal.",
			Source:    domain.UseDataset,
			Retrieved: []domain.RetrievedChunk{{Text: "heart size normal", Score: 0.91}},
		}, nil)

	router := newTestRouter(svc, true)

	payload, _ := json.Marshal(map[string]string{"question": "is the heart enlarged?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data handlers.AskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No, heart size is normal.", body.Data.Answer)
	assert.Equal(t, "dataset", body.Data.Source)
	require.Len(t, body.Data.Retrieved, 1)
	assert.InDelta(t, 0.91, float64(body.Data.Retrieved[0].Score), 1e-6)
	svc.AssertExpectations(t)
}

func TestRouter_AskEmptyQuestion(t *testing.T) {
	router := newTestRouter(new(MockQAService), true)

	payload := []byte(`{"question": ""}`)
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AskIndexNotBuilt(t *testing.T) {
	svc := new(MockQAService)
	svc.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.ErrIndexNotBuilt)

	router := newTestRouter(svc, false)

	payload := []byte(`{"question": "anything"}`)
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
