package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/services"
)

// TripAIHandler implements the conversational trip-creation flow. Tool
// calls proposed by the model are returned as pending actions and only
// executed after the user confirms.
type TripAIHandler struct {
	ai *services.TripAI
}

// NewTripAIHandler creates the trip AI handler.
func NewTripAIHandler(ai *services.TripAI) *TripAIHandler {
	return &TripAIHandler{ai: ai}
}

type tripAIChatRequest struct {
	Message string           `json:"message" binding:"required"`
	History []domain.Message `json:"history"`
}

// Chat advances the trip-creation conversation.
func (h *TripAIHandler) Chat(c *gin.Context) {
	var req tripAIChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.ai.ProcessQuery(c.Request.Context(), auth.UserID(c), req.Message, req.History)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":        result.Content,
		"pending_action": result.PendingAction,
	})
}

type tripAIConfirmRequest struct {
	FunctionName string                 `json:"function_name" binding:"required"`
	Arguments    map[string]interface{} `json:"arguments" binding:"required"`
}

// Confirm executes a previously proposed action.
func (h *TripAIHandler) Confirm(c *gin.Context) {
	var req tripAIConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.ai.ExecuteToolCall(c.Request.Context(), auth.UserID(c), req.FunctionName, req.Arguments)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
