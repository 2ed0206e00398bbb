package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"mealrelay/internal/models/request_models"
	"mealrelay/internal/models/response_models"
	"mealrelay/internal/services"
	"mealrelay/pkg/metrics"
	"mealrelay/pkg/utils"
)

const defaultHistoryLimit = 50

type ChatController struct {
	chatService services.ChatRelayServiceInterface
}

func NewChatController(chatService services.ChatRelayServiceInterface) *ChatController {
	return &ChatController{chatService: chatService}
}

// Chat godoc
// @Summary Relay a chat message
// @Description Forwards the message to the meal-planning webhook and returns the full reply
// @Tags Chat
// @Accept json,mpfd
// @Produce json
// @Param request body request_models.ChatRequest true "Chat payload"
// @Success 200 {object} response_models.ChatResponse
// @Failure 500 {object} response_models.ChatErrorResponse
// @Router /chat [post]
func (h *ChatController) Chat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response_models.ChatErrorResponse{Error: "Invalid request format"})
		return
	}
	if !scopeToSubject(c, &req) {
		c.JSON(http.StatusForbidden, response_models.ChatErrorResponse{Error: "Forbidden"})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("trace_id", c.GetString("trace_id")).Errorf("panic in chat handler: %v", r)
			metrics.RelayRequestsTotal.WithLabelValues(metrics.ModeJSON, metrics.OutcomeUpstream).Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, response_models.ChatErrorResponse{Error: "Internal server error"})
		}
	}()

	message, err := h.chatService.Relay(c.Request.Context(), req)
	metrics.RelayRequestsTotal.WithLabelValues(metrics.ModeJSON, services.Outcome(err)).Inc()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response_models.ChatErrorResponse{Error: services.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, response_models.ChatResponse{Message: message})
}

// StreamChat godoc
// @Summary Relay a chat message as Server-Sent Events
// @Description Emits connected, one delta per word, then complete; or a single error event
// @Tags Chat
// @Accept json,mpfd
// @Produce text/event-stream
// @Param request body request_models.ChatRequest true "Chat payload"
// @Router /chat/stream [post]
func (h *ChatController) StreamChat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response_models.ChatErrorResponse{Error: "Invalid request format"})
		return
	}
	if !scopeToSubject(c, &req) {
		c.JSON(http.StatusForbidden, response_models.ChatErrorResponse{Error: "Forbidden"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	sink := utils.NewSSEWriter(c.Writer)
	logger := log.WithField("trace_id", c.GetString("trace_id"))

	metrics.StreamsInFlight.Inc()
	defer metrics.StreamsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic in stream handler: %v", r)
			metrics.RelayRequestsTotal.WithLabelValues(metrics.ModeStream, metrics.OutcomeUpstream).Inc()
			if !sink.Terminated() {
				_ = sink.Send(response_models.ErrorEvent(services.UnavailableMessage))
			}
		}
	}()

	err := h.chatService.Stream(c.Request.Context(), req, sink)
	outcome := services.Outcome(err)
	metrics.RelayRequestsTotal.WithLabelValues(metrics.ModeStream, outcome).Inc()
	if err != nil {
		logger.WithError(err).WithField("outcome", outcome).Warn("stream ended early")
	}
}

// History godoc
// @Summary Chat history of a session
// @Tags Chat
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param limit query int false "Max messages" default(50) minimum(1) maximum(200)
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /chat/history/{sessionId} [get]
func (h *ChatController) History(c *gin.Context) {
	sessionID := c.Param("sessionId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	messages, err := h.chatService.History(c.Request.Context(), c.GetString("user_id"), sessionID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ChatHistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
	}, "Chat history fetched successfully")
}

// bindChatRequest binds form bodies by their content type and everything
// else as JSON, whatever the declared type. An empty body is an empty
// request, not an error.
func bindChatRequest(c *gin.Context) (request_models.ChatRequest, bool) {
	var req request_models.ChatRequest

	var err error
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		err = c.ShouldBind(&req)
	default:
		err = c.ShouldBindBodyWith(&req, binding.JSON)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return request_models.ChatRequest{}, true
		}
		log.WithError(err).WithField("trace_id", c.GetString("trace_id")).Warn("bind chat request")
		return req, false
	}
	return req, true
}

// scopeToSubject pins user_id to the verified token subject. A body naming
// another user or a session the subject does not own is refused. Without
// token verification the request is left untouched.
func scopeToSubject(c *gin.Context, req *request_models.ChatRequest) bool {
	subject := c.GetString("user_id")
	if subject == "" {
		return true
	}

	if (req.UserID != "" && req.UserID != subject) ||
		(req.SessionID != "" && !services.OwnsSession(subject, req.SessionID)) {
		log.WithFields(log.Fields{
			"trace_id":   c.GetString("trace_id"),
			"subject":    subject,
			"user_id":    req.UserID,
			"session_id": req.SessionID,
		}).Warn("chat request for another user")
		return false
	}

	req.UserID = subject
	return true
}
