package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/models"
)

type Handler struct {
	store   *chat.Store
	tokens  *llm.TokenCounter
	limiter *RateLimiter
	logger  *zap.Logger
}

func NewHandler(store *chat.Store, tokens *llm.TokenCounter, limiter *RateLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/state", h.GetState)
	g.GET("/conversations", h.ListConversations)
	g.POST("/messages", h.SendMessage, h.limiter.Middleware())
	g.POST("/chat/new", h.StartNewChat)
	g.POST("/conversations/:id/select", h.SelectConversation)
	g.PUT("/conversations/:id", h.RenameConversation)
	g.PUT("/conversations/:id/project", h.MoveConversation)
	g.DELETE("/conversations/:id", h.DeleteConversation)
	g.GET("/projects", h.ListProjects)
	g.POST("/projects", h.CreateProject)
	g.PATCH("/projects/:id", h.UpdateProject)
	g.DELETE("/projects/:id", h.DeleteProject)
}

type SendMessageRequest struct {
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	WebSearch   bool                `json:"webSearch"`
	Mode        string              `json:"mode,omitempty"`
}

type SendMessageResponse struct {
	Conversation models.Conversation `json:"conversation"`
	Success      bool                `json:"success"`
	Error        string              `json:"error,omitempty"`
	Duration     float64             `json:"duration"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

type MoveConversationRequest struct {
	ProjectID string `json:"projectId"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
	models.ProjectAttrs
}

// ConversationView is a conversation plus its estimated token cost.
type ConversationView struct {
	models.Conversation
	Tokens int `json:"tokens"`
}

func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *Handler) ListConversations(c echo.Context) error {
	var conversations []models.Conversation
	if projectID, ok := c.QueryParams()["project"]; ok {
		conversations = h.store.ConversationsInProject(projectID[0])
	} else {
		conversations = h.store.Conversations()
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		views = append(views, ConversationView{Conversation: conv, Tokens: h.tokens.Count(conv.Transcript())})
	}

	h.logger.Debug("Retrieved conversations",
		zap.Int("count", len(views)),
		zap.String("path", c.Path()))
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	var mode models.ThinkingMode
	if req.Mode != "" {
		parsed, err := models.ParseThinkingMode(req.Mode)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		mode = parsed
	}

	conv, res, err := h.store.SendMessage(c.Request().Context(), req.Text, chat.SendOptions{
		Attachments: req.Attachments,
		WebSearch:   req.WebSearch,
		Mode:        mode,
	})
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrSendInFlight):
		return errorJSON(c, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error("Failed to send message", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, SendMessageResponse{
		Conversation: conv,
		Success:      res.Success,
		Error:        res.Error,
		Duration:     res.DurationSeconds(),
	})
}

func (h *Handler) StartNewChat(c echo.Context) error {
	h.store.StartNewChat()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SelectConversation(c echo.Context) error {
	id := c.Param("id")
	if !h.store.SelectConversation(id) {
		return notFound(c, "conversation", id)
	}
	conv, _ := h.store.Current()
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) RenameConversation(c echo.Context) error {
	var req RenameConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return errorJSON(c, http.StatusBadRequest, "title is empty")
	}
	id := c.Param("id")
	if !h.store.RenameConversation(id, req.Title) {
		return notFound(c, "conversation", id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MoveConversation(c echo.Context) error {
	var req MoveConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	id := c.Param("id")
	if !h.store.MoveConversation(id, req.ProjectID) {
		return notFound(c, "conversation", id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteConversation(c echo.Context) error {
	id := c.Param("id")
	if !h.store.DeleteConversation(id) {
		return notFound(c, "conversation", id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListProjects(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Projects())
}

func (h *Handler) CreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	project, err := h.store.CreateProject(req.Name, req.ProjectAttrs)
	if errors.Is(err, chat.ErrEmptyName) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		h.logger.Error("Failed to create project", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *Handler) UpdateProject(c echo.Context) error {
	var req models.ProjectUpdate
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	id := c.Param("id")
	if !h.store.UpdateProject(id, req) {
		return notFound(c, "project", id)
	}
	for _, p := range h.store.Projects() {
		if p.ID == id {
			return c.JSON(http.StatusOK, p)
		}
	}
	return notFound(c, "project", id)
}

func (h *Handler) DeleteProject(c echo.Context) error {
	id := c.Param("id")
	if !h.store.DeleteProject(id) {
		return notFound(c, "project", id)
	}
	return c.NoContent(http.StatusNoContent)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func notFound(c echo.Context, kind, id string) error {
	return errorJSON(c, http.StatusNotFound, kind+" "+id+" not found")
}
