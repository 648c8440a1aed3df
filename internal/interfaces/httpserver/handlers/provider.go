package handlers

import (
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/config"
	"tutor-server/services/chat-api/internal/domain/chat"
	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/domain/vocabulary"
)

// Provider wires HTTP handlers.
type Provider struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
	Speech       *SpeechHandler
	Usage        *UsageHandler
	Vocabulary   *VocabularyHandler
}

func NewProvider(
	cfg *config.Config,
	relay *chat.Relay,
	convs *conversation.Service,
	speechSvc *speech.Service,
	users *user.Service,
	usage *tokenusage.Service,
	vocabs *vocabulary.Service,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Chat:         NewChatHandler(cfg, relay, log),
		Conversation: NewConversationHandler(convs, log),
		Speech:       NewSpeechHandler(speechSvc, users, log),
		Usage:        NewUsageHandler(usage, log),
		Vocabulary:   NewVocabularyHandler(vocabs, log),
	}
}
