package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/transport/http/middleware"
	"ragdesk/internal/transport/http/response"
)

type ChatHandler struct{}

type DraftRequest struct {
	Text string `json:"text" binding:"max=8000"`
}

// SendMessageRequest submits Question, or the stored draft when it is
// omitted.
type SendMessageRequest struct {
	Question *string `json:"question" binding:"omitempty,max=8000"`
}

func NewChatHandler() *ChatHandler {
	return &ChatHandler{}
}

func (h *ChatHandler) Show(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}
	response.OK(c, con.Chat.Snapshot())
}

func (h *ChatHandler) PutDraft(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	con.Chat.SetDraft(req.Text)
	response.OK(c, con.Chat.Snapshot())
}

// SendMessage blocks until the answer (or the apology) is in the history. A
// submission dropped because a question is already in flight still answers
// 200 with accepted=false.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	// In-flight requests run to completion even if the caller goes away.
	ctx := context.WithoutCancel(c.Request.Context())

	var accepted bool
	if req.Question != nil {
		accepted = con.Chat.SubmitQuestion(ctx, *req.Question)
	} else {
		accepted = con.Chat.SubmitDraft(ctx)
	}

	response.OK(c, gin.H{
		"accepted": accepted,
		"chat":     con.Chat.Snapshot(),
	})
}
