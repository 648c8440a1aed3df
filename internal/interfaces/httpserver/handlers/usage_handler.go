package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/responses"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

const (
	defaultUsageDays = 30
	maxUsageDays     = 365
)

// UsageHandler exposes the caller's token usage ledger.
type UsageHandler struct {
	usage *tokenusage.Service
	log   zerolog.Logger
}

func NewUsageHandler(usage *tokenusage.Service, log zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		usage: usage,
		log:   log.With().Str("component", "usage-handler").Logger(),
	}
}

// GetMyUsage reports recorded usage over the last N days (default 30),
// totalled and broken down per model and per day.
func (h *UsageHandler) GetMyUsage(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "c48b0e27-9d6a-4f13-85cb-2e7f0a59d361")
		return
	}

	days := defaultUsageDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxUsageDays {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid days parameter", "7f3d9a50-1e8c-4b64-a2d7-90c5e6f18b43")
			return
		}
		days = parsed
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	resp, err := h.usage.GetMyUsage(c.Request.Context(), u.ID, start, end)
	if err != nil {
		responses.HandleError(c, err, "failed to load usage")
		return
	}

	c.JSON(http.StatusOK, resp)
}
