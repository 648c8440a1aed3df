package api

import (
	"github.com/gin-gonic/gin"

	"tutor-server/services/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates API route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all routes under the /api prefix. The router is expected
// to already carry the principal middleware.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api")

	group.POST("/chat", r.handlers.Chat.Stream)

	group.GET("/conversations", r.handlers.Conversation.List)
	group.POST("/conversations", r.handlers.Conversation.Create)
	group.POST("/conversations/restore", r.handlers.Conversation.Restore)
	group.GET("/conversations/:id", r.handlers.Conversation.Get)
	group.DELETE("/conversations/:id", r.handlers.Conversation.Delete)
	group.PUT("/conversations/:id/rename", r.handlers.Conversation.Rename)
	group.POST("/messages/:id/finalize", r.handlers.Conversation.FinalizeMessage)

	group.POST("/tts", r.handlers.Speech.Speak)
	group.POST("/tts/single", r.handlers.Speech.Speak)
	group.GET("/voices", r.handlers.Speech.GetVoices)
	group.POST("/voices", r.handlers.Speech.UpdateVoices)

	group.GET("/usage", r.handlers.Usage.GetMyUsage)

	group.GET("/vocabularies", r.handlers.Vocabulary.List)
	group.POST("/vocabularies", r.handlers.Vocabulary.Create)
	group.PUT("/vocabularies/:id", r.handlers.Vocabulary.Update)
	group.DELETE("/vocabularies/:id", r.handlers.Vocabulary.Delete)
}
