package handler

import (
	"github.com/gin-gonic/gin"

	"thoth-writer-api/internal/application/chat"
	"thoth-writer-api/internal/interfaces/http/dto"
)

// ChatHandler 写作助手对话
type ChatHandler struct {
	chats *chat.Service
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chats *chat.Service) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// SendMessage 发送消息并返回助手回复
// @Router /v1/chat/message [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var req dto.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := h.chats.Send(ctx, userID, req.ProjectID, req.Message)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, reply)
}

// GetHistory 按时间正序返回最近的对话消息
// @Router /v1/chat/history [get]
func (h *ChatHandler) GetHistory(c *gin.Context) {
	ctx, userID, ok := requestContext(c)
	if !ok {
		return
	}

	var q dto.ChatHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	turns, err := h.chats.History(ctx, userID, q.ProjectID, q.Limit)
	if err != nil {
		failWith(c, err)
		return
	}
	dto.Success(c, dto.ToChatHistoryResponse(turns))
}
