package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/service"
	"datatalk-backend/internal/util"
)

type ChatController struct {
	chatService service.ChatService
}

func NewChatController(chatService service.ChatService) *ChatController {
	return &ChatController{
		chatService: chatService,
	}
}

func RegisterChatRoutes(router *gin.Engine, controller *ChatController) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/chat", controller.HandleChat)
		v1.GET("/sessions/:id/history", controller.GetHistory)
	}
}

// HandleChat godoc
// @Summary      Ask a question about an uploaded dataset
// @Description  Classifies the message, dispatches it to the matching analysis strategy and returns the answer together with render-ready charts and insights. Failures inside the analysis are reported in the answer, not as HTTP errors.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body dto.ChatRequest true "Session ID and user message"
// @Success      200 {object} dto.ChatResponse "Answer, charts and insights"
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      404 {object} model.Response "Session not found"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/chat [post]
func (c *ChatController) HandleChat(ctx *gin.Context) {
	var req dto.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid chat request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Message must not be empty", nil))
		return
	}

	resp, err := c.chatService.Chat(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "chat")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetHistory godoc
// @Summary      Get the chat history of a session
// @Tags         chat
// @Produce      json
// @Param        id    path   string  true   "Session ID"
// @Param        since query  string  false  "Only messages at or after this time (RFC 3339, YYYY-MM-DD or epoch milliseconds)"
// @Success      200 {object} dto.HistoryResponse
// @Failure      400 {object} model.Response "Invalid since parameter"
// @Failure      404 {object} model.Response "Session not found"
// @Router       /api/v1/sessions/{id}/history [get]
func (c *ChatController) GetHistory(ctx *gin.Context) {
	var since time.Time
	if raw := ctx.Query("since"); raw != "" {
		parsed, err := util.ParseTimeFlexible(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid since format. Use ISO 8601, YYYY-MM-DD or epoch milliseconds.", nil))
			return
		}
		since = parsed
	}

	resp, err := c.chatService.History(ctx.Request.Context(), ctx.Param("id"), since)
	if err != nil {
		respondError(ctx, err, "history")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
