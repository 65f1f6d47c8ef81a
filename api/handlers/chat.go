package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tripflow/tripflow/pkg/agent"
	"github.com/tripflow/tripflow/pkg/agui"
	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/domain"
)

// defaultAgentID handles /chat/stream requests that do not target a
// specific persona.
const defaultAgentID = "chat-assistant"

// ChatHandler exposes the streaming conversation endpoints.
type ChatHandler struct {
	agents *agent.Service
	llm    domain.Generator
}

// NewChatHandler creates the chat handler.
func NewChatHandler(agents *agent.Service, llm domain.Generator) *ChatHandler {
	return &ChatHandler{agents: agents, llm: llm}
}

type chatRequest struct {
	Message      string                 `json:"message"`
	SystemPrompt string                 `json:"system_prompt"`
	History      []domain.Message       `json:"history"`
	RunID        string                 `json:"run_id"`
	Context      map[string]interface{} `json:"context"`
}

// agentChatRequest matches the camelCase body the web client sends to the
// per-agent endpoint.
type agentChatRequest struct {
	Message      string                 `json:"message"`
	SystemPrompt string                 `json:"systemPrompt"`
	History      []domain.Message       `json:"history"`
	RunID        string                 `json:"runId"`
	Context      map[string]interface{} `json:"context"`
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

func (h *ChatHandler) streamRun(c *gin.Context, agentID string, req agent.RunRequest) {
	sseHeaders(c)
	frames := h.agents.Run(c.Request.Context(), agentID, req)

	c.Stream(func(w io.Writer) bool {
		frame, ok := <-frames
		if !ok {
			return false
		}
		_, _ = io.WriteString(w, frame)
		return true
	})
}

// Stream runs the default assistant and streams its events over SSE.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(c, "消息内容不能为空")
		return
	}

	h.streamRun(c, defaultAgentID, agent.RunRequest{
		UserInput:    req.Message,
		SystemPrompt: req.SystemPrompt,
		History:      req.History,
		RunID:        req.RunID,
		UserID:       auth.UserID(c),
		Context:      req.Context,
	})
}

// Simple answers a message in one shot without the event protocol.
func (h *ChatHandler) Simple(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(c, "消息内容不能为空")
		return
	}

	var messages []domain.Message
	if req.SystemPrompt != "" {
		messages = append(messages, domain.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.History...)
	messages = append(messages, domain.Message{Role: "user", Content: req.Message})

	response, err := h.llm.Generate(c.Request.Context(), messages, nil)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": response,
		"run_id":   agui.NewRunID(),
	})
}

// Agents lists the available personas keyed by id.
func (h *ChatHandler) Agents(c *gin.Context) {
	info := make(map[string]agent.Info)
	for _, a := range h.agents.Agents() {
		info[a.AgentID] = a
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"agents":  info,
	})
}

// AgentStream runs the requested persona and streams its events over SSE.
// Unknown agent ids still stream: the run yields a single RUN_ERROR frame.
func (h *ChatHandler) AgentStream(c *gin.Context) {
	var req agentChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(c, "消息内容不能为空")
		return
	}

	h.streamRun(c, c.Param("id"), agent.RunRequest{
		UserInput:    req.Message,
		SystemPrompt: req.SystemPrompt,
		History:      req.History,
		RunID:        req.RunID,
		UserID:       auth.UserID(c),
		Context:      req.Context,
	})
}

// Test checks connectivity to the LLM provider.
func (h *ChatHandler) Test(c *gin.Context) {
	checker, ok := h.llm.(interface{ Health(context.Context) error })
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "健康检查不可用"})
		return
	}

	if err := checker.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "测试失败: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "连接正常"})
}

// Health reports the chat service as alive.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "chat",
		"protocol": "AG-UI",
		"version":  "1.0.0",
	})
}
