package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/infrastructure/metrics"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/requests"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/responses"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

const maxSpeakTextLength = 1000

// SpeechHandler exposes synthesis and voice preference endpoints.
type SpeechHandler struct {
	speech *speech.Service
	users  *user.Service
	log    zerolog.Logger
}

func NewSpeechHandler(speechSvc *speech.Service, users *user.Service, log zerolog.Logger) *SpeechHandler {
	return &SpeechHandler{
		speech: speechSvc,
		users:  users,
		log:    log.With().Str("component", "speech-handler").Logger(),
	}
}

// Speak returns MP3 audio for one utterance, serving from cache when the
// same text was synthesized recently.
func (h *SpeechHandler) Speak(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "b3f9d2a7-5e80-4c16-94ab-7d2e0f68c531")
		return
	}

	var req requests.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "1e6a8c40-9f2d-4b75-a3e8-c5d07b19f462")
		return
	}

	text := req.Text
	if runes := []rune(text); len(runes) > maxSpeakTextLength {
		text = string(runes[:maxSpeakTextLength])
	}
	if len([]rune(text)) < 2 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "Text trống", "f0c52d8e-3b7a-4961-8d0f-a4e6c9b21735")
		return
	}

	text = speech.CleanForSpeech(text)
	if text == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "Text trống", "6d8f1b39-0a4e-4c52-b7d6-e92a5f08c314")
		return
	}

	lang := speech.NormalizeLanguage(req.Lang)
	rate := speech.RateFor(lang)

	if data, ok := h.speech.Cache().Get(speech.CacheKey(text, lang, rate)); ok {
		metrics.RecordTTSCache("hit")
		c.Data(http.StatusOK, "audio/mpeg", data)
		return
	}
	metrics.RecordTTSCache("miss")

	start := time.Now()
	data, err := h.speech.Speak(c.Request.Context(), text, lang, u.Voices)
	duration := time.Since(start).Seconds()
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrSynthesisTimeout):
			metrics.RecordSynthesis(string(lang), "timeout", duration)
			responses.HandleNewError(c, platformerrors.ErrorTypeTimeout, "Không thể tạo audio", "a7e03c58-4d9b-4f26-81ce-b5f2d6a09e47")
		default:
			metrics.RecordSynthesis(string(lang), "error", duration)
			h.log.Error().Err(err).Str("lang", string(lang)).Msg("synthesis failed")
			responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "Không thể tạo audio", "2c95f7a0-8e31-4d68-b04a-f6d1c8e35b92")
		}
		return
	}
	metrics.RecordSynthesis(string(lang), "ok", duration)

	c.Data(http.StatusOK, "audio/mpeg", data)
}

// GetVoices returns the voice catalog and the caller's current selection.
func (h *SpeechHandler) GetVoices(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "90d4b7e2-6a5f-4c38-8b1d-07e9f3a26c54")
		return
	}

	c.JSON(http.StatusOK, responses.VoicesResponse{
		Voices:  speech.AvailableVoices,
		Current: u.Voices,
	})
}

// UpdateVoices stores new per-language voice preferences.
func (h *SpeechHandler) UpdateVoices(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "e82a6f05-1c9d-4b73-a4e0-58d3c7b91f26")
		return
	}

	var req requests.UpdateVoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "5b1e9d74-3f0a-4c86-92b5-d60e8a42f713")
		return
	}

	current, err := h.users.UpdateVoices(c.Request.Context(), u, req.Vietnamese, req.English)
	if err != nil {
		responses.HandleError(c, err, "failed to update voices")
		return
	}

	c.JSON(http.StatusOK, responses.VoicesUpdateResponse{Success: true, Current: current})
}
