package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clinvector/ehrqa/internal/api"
	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/service"
)

type QAService interface {
	Ask(ctx context.Context, req service.QARequest) (*service.QAResponse, error)
}

type QAHandler struct {
	svc QAService
}

func NewQAHandler(svc QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

// AskRequest carries one question. Threshold is optional; omitting it uses
// the server default, while an explicit 0 always answers from the dataset.
type AskRequest struct {
	Question  string   `json:"question"`
	Mode      string   `json:"mode"`
	TopK      int      `json:"top_k"`
	Threshold *float32 `json:"threshold"`
}

type RetrievedChunkResponse struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type AskResponse struct {
	Answer    string                   `json:"answer"`
	Source    string                   `json:"source"`
	Degraded  bool                     `json:"degraded,omitempty"`
	Retrieved []RetrievedChunkResponse `json:"retrieved"`
}

// Ask handles POST /ask.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	resp, err := h.svc.Ask(r.Context(), service.QARequest{
		Question:  req.Question,
		Mode:      domain.ParseMode(req.Mode),
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	retrieved := make([]RetrievedChunkResponse, len(resp.Retrieved))
	for i, chunk := range resp.Retrieved {
		retrieved[i] = RetrievedChunkResponse{Text: chunk.Text, Score: chunk.Score}
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:    resp.Answer,
		Source:    string(resp.Source),
		Degraded:  resp.Degraded,
		Retrieved: retrieved,
	})
}
