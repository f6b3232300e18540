package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/rag"
)

type chatHandler struct {
	pipeline Pipeline
	logger   log.Logger
}

// ChatRequest is the body of POST /reddit/chat.
type ChatRequest struct {
	PostID      string     `json:"post_id"`
	Message     string     `json:"message"`
	ChatHistory []rag.Turn `json:"chat_history"`
}

// ChatResponse is the body of a successful chat reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// send handles POST /reddit/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ChatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	if req.PostID == "" {
		writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest, "post_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest, "message is required")
		return
	}
	for i, turn := range req.ChatHistory {
		if turn.Role != rag.RoleUser && turn.Role != rag.RoleAssistant {
			writeError(w, h.logger, http.StatusBadRequest, codeInvalidRequest,
				fmt.Sprintf("chat_history[%d].role must be %q or %q", i, rag.RoleUser, rag.RoleAssistant))
			return
		}
	}

	answer, err := h.pipeline.Answer(r.Context(), req.PostID, req.Message, req.ChatHistory)
	if err != nil {
		h.logger.Error("answering chat message", "post_id", req.PostID, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, codeUpstreamError,
			"generating an answer failed")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChatResponse{Response: answer})
}
