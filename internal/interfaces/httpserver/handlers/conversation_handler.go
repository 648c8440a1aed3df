package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/requests"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/responses"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// ConversationHandler exposes conversation lifecycle endpoints.
type ConversationHandler struct {
	convs *conversation.Service
	log   zerolog.Logger
}

func NewConversationHandler(convs *conversation.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		convs: convs,
		log:   log.With().Str("component", "conversation-handler").Logger(),
	}
}

// List returns the caller's active conversations, newest activity first.
// Expired soft-deletes are purged opportunistically before listing.
func (h *ConversationHandler) List(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "4f2c8a61-3e9d-4b07-a5f8-1d6c0be7a295")
		return
	}

	convs, err := h.convs.ListConversations(c.Request.Context(), u)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationListResponse(convs))
}

// Create opens an empty conversation with the default title.
func (h *ConversationHandler) Create(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "a91d5e37-6b0f-4c28-8d14-e7f3a2c69b50")
		return
	}

	conv, err := h.convs.CreateConversation(c.Request.Context(), u, "")
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": responses.NewConversationResponse(conv)})
}

// Get returns one conversation with its messages. Stale pending messages
// are reconciled before the read.
func (h *ConversationHandler) Get(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "0c7e4b92-8f5a-4d36-b1e0-6a2d9c84f517")
		return
	}

	conv, err := h.convs.GetConversationDetail(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": responses.NewConversationDetailResponse(conv)})
}

// Delete soft-deletes a conversation; it stays restorable for the grace
// window.
func (h *ConversationHandler) Delete(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "f58a3c20-1d7e-4692-b4c8-9e0f6a31d725")
		return
	}

	if err := h.convs.SoftDelete(c.Request.Context(), u, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Restore undoes a recent soft delete.
func (h *ConversationHandler) Restore(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "62d9f0b4-7a3e-4c51-8b26-d1e8c5a09f37")
		return
	}

	var req requests.RestoreConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "3b804f6d-2c9a-4e17-95d3-f7a1e0b8c642")
		return
	}

	conv, err := h.convs.Restore(c.Request.Context(), u, req.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to restore conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": responses.NewConversationResponse(conv)})
}

// Rename sets a new validated title.
func (h *ConversationHandler) Rename(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "e14c7d85-0b2f-4a69-83e1-5c6d9f02a748")
		return
	}

	var req requests.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "8a5f2e90-6d1c-4b37-a0e4-29c8b7d5f163")
		return
	}

	conv, err := h.convs.Rename(c.Request.Context(), u, c.Param("id"), req.Title)
	if err != nil {
		responses.HandleError(c, err, "failed to rename conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": responses.NewConversationResponse(conv)})
}

// FinalizeMessage settles a message the client saw end without a terminal
// event. Idempotent; status is coerced to cancelled unless already
// completed.
func (h *ConversationHandler) FinalizeMessage(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "d07b9e52-4f8a-4c16-b3d9-0e5a7c21f684")
		return
	}

	var req requests.FinalizeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "57e0a3f8-9c4d-4b72-861e-b2f5d8a0c391")
		return
	}

	msg, err := h.convs.FinalizeMessage(c.Request.Context(), u, c.Param("id"), req.Status)
	if err != nil {
		responses.HandleError(c, err, "failed to finalize message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": responses.NewMessageResponse(*msg)})
}
