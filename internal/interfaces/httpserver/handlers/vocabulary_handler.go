package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/vocabulary"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/requests"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/responses"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// VocabularyHandler exposes the saved-word notebook.
type VocabularyHandler struct {
	vocabs *vocabulary.Service
	log    zerolog.Logger
}

func NewVocabularyHandler(vocabs *vocabulary.Service, log zerolog.Logger) *VocabularyHandler {
	return &VocabularyHandler{
		vocabs: vocabs,
		log:    log.With().Str("component", "vocabulary-handler").Logger(),
	}
}

// List returns the caller's saved words, newest first.
func (h *VocabularyHandler) List(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "1a7e4d92-8c0b-4f35-96da-e53b2f80c617")
		return
	}

	items, err := h.vocabs.List(c.Request.Context(), u.ID)
	if err != nil {
		responses.HandleError(c, err, "failed to list vocabularies")
		return
	}

	c.JSON(http.StatusOK, responses.NewVocabularyListResponse(items))
}

// Create saves a new word. A word already in the caller's notebook comes
// back as a conflict together with the existing entry.
func (h *VocabularyHandler) Create(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "b65c2f18-0d9e-4a73-8f41-c7a0d3e59b26")
		return
	}

	var req requests.CreateVocabularyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "d93f0a56-7b2e-4c18-a5d0-61e8f4c27b93")
		return
	}

	vocab, err := h.vocabs.Add(c.Request.Context(), u.ID, req.Word, req.Note)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) && vocab != nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":      "Từ này đã có trong danh sách",
				"vocabulary": responses.NewVocabularyResponse(vocab),
			})
			return
		}
		responses.HandleError(c, err, "failed to save vocabulary")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "vocabulary": responses.NewVocabularyResponse(vocab)})
}

// Update edits a saved word's text or note.
func (h *VocabularyHandler) Update(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "e20d8b47-5f3a-4c91-b6e2-09d7a5f13c48")
		return
	}

	var req requests.UpdateVocabularyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "48a1f6d0-2e9c-4b57-83f6-d5c0e72a91b4")
		return
	}

	vocab, err := h.vocabs.Update(c.Request.Context(), u.ID, c.Param("id"), req.Word, req.Note)
	if err != nil {
		responses.HandleError(c, err, "failed to update vocabulary")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "vocabulary": responses.NewVocabularyResponse(vocab)})
}

// Delete removes a saved word.
func (h *VocabularyHandler) Delete(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "f71b3c09-6a4d-4e82-95cf-b0d8e61a27f5")
		return
	}

	if err := h.vocabs.Delete(c.Request.Context(), u.ID, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete vocabulary")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
