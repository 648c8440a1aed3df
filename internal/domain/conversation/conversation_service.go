package conversation

import (
	"context"
	"html"
	"strings"
	"time"

	"tutor-server/services/chat-api/internal/domain/prompt"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/utils/idgen"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
	"tutor-server/services/chat-api/internal/utils/tokenestimate"
)

// CancelledPromptFactor is the heuristic prompt/completion ratio used when
// charging a message whose stream never reported usage. The prompt side of a
// tutor exchange is routinely about twice the completion, so a cancelled
// message is charged prompt = 2 × estimated completion.
const CancelledPromptFactor = 2

// Clock abstracts time.Now for restore-window and sweep tests.
type Clock func() time.Time

// Transactor runs fn atomically. Repository calls made with the context fn
// receives join one transaction and roll back together when fn errors.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service handles conversation lifecycle, ownership and reconciliation.
type Service struct {
	repo  Repository
	users user.Repository
	tx    Transactor
	grace time.Duration
	now   Clock
}

// NewService creates a conversation service. grace is the soft-delete
// restore window.
func NewService(repo Repository, users user.Repository, tx Transactor, grace time.Duration) *Service {
	return NewServiceWithClock(repo, users, tx, grace, time.Now)
}

// NewServiceWithClock is NewService with an injected clock.
func NewServiceWithClock(repo Repository, users user.Repository, tx Transactor, grace time.Duration, now Clock) *Service {
	return &Service{repo: repo, users: users, tx: tx, grace: grace, now: now}
}

// CreateConversation creates an empty conversation for u. An empty title
// gets the default placeholder.
func (s *Service) CreateConversation(ctx context.Context, u *user.User, title string) (*Conversation, error) {
	publicID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate conversation ID", err, "2a7c9d41-6f1e-4b3a-9c85-d024e7f6b190")
	}
	if title == "" {
		title = DefaultTitle
	}

	conv := &Conversation{PublicID: publicID, UserID: u.ID, Title: title}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}
	return conv, nil
}

// ListConversations returns u's active conversations, newest activity first.
// Soft-deleted rows past the grace window are purged opportunistically first,
// mirroring the scheduled sweep.
func (s *Service) ListConversations(ctx context.Context, u *user.User) ([]*Conversation, error) {
	deleted := true
	expired, err := s.repo.FindByFilter(ctx, Filter{UserID: &u.ID, IsDeleted: &deleted})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list deleted conversations")
	}
	cutoff := s.now().Add(-s.grace)
	for _, conv := range expired {
		if conv.DeletedAt != nil && conv.DeletedAt.Before(cutoff) {
			if err := s.repo.HardDelete(ctx, conv.ID); err != nil {
				return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to purge conversation")
			}
		}
	}

	active := false
	convs, err := s.repo.FindByFilter(ctx, Filter{UserID: &u.ID, IsDeleted: &active})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return convs, nil
}

// GetOwnedConversation resolves publicID and verifies ownership. A foreign
// conversation is reported as not found, never as forbidden.
func (s *Service) GetOwnedConversation(ctx context.Context, u *user.User, publicID string) (*Conversation, error) {
	if !idgen.ValidateIDFormat(publicID, "conv") {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation ID", nil, "b5d2e8a1-4c7f-4e90-a36b-8f1d5c2e9a74")
	}
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	if conv.UserID != u.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "c8f3a1d6-2e9b-4750-b1c4-6a8e0d3f7b25")
	}
	return conv, nil
}

// GetConversationDetail returns an owned conversation with its messages,
// after running the passive reconciliation pass over pending rows.
func (s *Service) GetConversationDetail(ctx context.Context, u *user.User, publicID string) (*Conversation, error) {
	conv, err := s.GetOwnedConversation(ctx, u, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.reconcilePending(ctx, u, conv); err != nil {
		return nil, err
	}
	msgs, err := s.repo.FindMessages(ctx, conv.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load messages")
	}
	conv.Messages = msgs
	return conv, nil
}

// reconcilePending settles messages a crashed or disconnected stream left
// pending: an assistant message with content is cancelled and charged by
// estimate (once, gated on zero totals), an empty assistant message is
// dropped, a user message is cancelled without charge.
func (s *Service) reconcilePending(ctx context.Context, u *user.User, conv *Conversation) error {
	convSnap := *conv
	userSnap := *u

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		msgs, err := s.repo.FindMessages(ctx, conv.ID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load messages")
		}

		convDirty := false
		userDirty := false
		for i := range msgs {
			msg := &msgs[i]
			if msg.Status != StatusPending {
				continue
			}

			switch {
			case msg.Role == RoleAssistant && msg.Content != "":
				msg.Status = StatusCancelled
				if msg.TotalTokens == 0 {
					msg.CompletionTokens = tokenestimate.Estimate(msg.Content)
					msg.PromptTokens = msg.CompletionTokens * CancelledPromptFactor
					msg.TotalTokens = msg.PromptTokens + msg.CompletionTokens
					conv.TotalTokens += int64(msg.TotalTokens)
					u.AddTokensUsed(int64(msg.TotalTokens))
					convDirty = true
					userDirty = true
				}
				if err := s.repo.UpdateMessage(ctx, msg); err != nil {
					return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to reconcile message")
				}
			case msg.Role == RoleUser:
				msg.Status = StatusCancelled
				if err := s.repo.UpdateMessage(ctx, msg); err != nil {
					return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to reconcile message")
				}
			default:
				if err := s.repo.DeleteMessage(ctx, msg.ID); err != nil {
					return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to drop empty message")
				}
			}
		}

		if convDirty {
			if err := s.repo.Update(ctx, conv); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist reconciled totals")
			}
		}
		if userDirty {
			if err := s.users.Update(ctx, u); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist reconciled quota")
			}
		}
		return nil
	})
	if err != nil {
		*conv = convSnap
		*u = userSnap
	}
	return err
}

// SoftDelete flags an owned conversation as deleted and stamps the time.
func (s *Service) SoftDelete(ctx context.Context, u *user.User, publicID string) error {
	conv, err := s.GetOwnedConversation(ctx, u, publicID)
	if err != nil {
		return err
	}
	now := s.now()
	conv.IsDeleted = true
	conv.DeletedAt = &now
	if err := s.repo.Update(ctx, conv); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// Restore clears the soft-delete flag while still inside the grace window.
func (s *Service) Restore(ctx context.Context, u *user.User, publicID string) (*Conversation, error) {
	conv, err := s.GetOwnedConversation(ctx, u, publicID)
	if err != nil {
		return nil, err
	}
	if !conv.IsDeleted {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "deleted conversation not found", nil, "d1a9f4c2-8b3e-46d7-95a0-3c7e2f8b1d60")
	}
	if conv.DeletedAt != nil && s.now().Sub(*conv.DeletedAt) > s.grace {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "restore window has passed", nil, "e6b8d3f1-7a2c-4590-8e4d-1f9a6c3b7e82")
	}
	conv.IsDeleted = false
	conv.DeletedAt = nil
	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to restore conversation")
	}
	return conv, nil
}

// Rename sets a new validated title on an owned conversation.
func (s *Service) Rename(ctx context.Context, u *user.User, publicID, title string) (*Conversation, error) {
	conv, err := s.GetOwnedConversation(ctx, u, publicID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if runes := []rune(title); len(runes) > MaxTitleLength {
		title = string(runes[:MaxTitleLength])
	}
	if title == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "Tên không được để trống", nil, "f2c7a9e4-1d8b-4356-b7e0-9a5d3f1c8b46")
	}
	conv.Title = html.EscapeString(title)
	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to rename conversation")
	}
	return conv, nil
}

// FinalizeMessage explicitly settles one message by public ID. The requested
// status is coerced to cancelled unless it is completed. Charging uses the
// same zero-totals gate and heuristic ratio as reconciliation, so repeated
// finalize calls charge at most once.
func (s *Service) FinalizeMessage(ctx context.Context, u *user.User, messagePublicID, status string) (*Message, error) {
	msg, err := s.repo.FindMessageByPublicID(ctx, messagePublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "message not found")
	}

	id := msg.ConversationID
	convs, err := s.repo.FindByFilter(ctx, Filter{ID: &id})
	if err != nil || len(convs) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", err, "a4e1c8d7-9f2b-4063-8d5e-7b3a1f6c9d28")
	}
	conv := convs[0]
	if conv.UserID != u.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not allowed", nil, "b9d6f2a3-4e8c-41b7-a0d9-5c2e7f1a8b63")
	}

	final := StatusCancelled
	if status == string(StatusCompleted) {
		final = StatusCompleted
	}

	// Charge and status change commit together or not at all.
	userSnap := *u
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if msg.TotalTokens == 0 && msg.Content != "" {
			msg.CompletionTokens = tokenestimate.Estimate(msg.Content)
			msg.PromptTokens = msg.CompletionTokens * CancelledPromptFactor
			msg.TotalTokens = msg.PromptTokens + msg.CompletionTokens
			conv.TotalTokens += int64(msg.TotalTokens)
			u.AddTokensUsed(int64(msg.TotalTokens))
			if err := s.repo.Update(ctx, conv); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist conversation totals")
			}
			if err := s.users.Update(ctx, u); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist user quota")
			}
		}

		msg.Status = final
		if err := s.repo.UpdateMessage(ctx, msg); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to finalize message")
		}
		return nil
	})
	if err != nil {
		*u = userSnap
		return nil, err
	}
	return msg, nil
}

// SweepExpired hard-deletes conversations whose soft-delete grace window has
// passed. Used by the scheduled cleanup job.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.HardDeleteSoftDeletedBefore(ctx, s.now().Add(-s.grace))
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to sweep deleted conversations")
	}
	return n, nil
}

// ===============================================
// Stream relay support
// ===============================================

// Exchange is the persistent state backing one chat request: the target
// conversation, the user's message and the pending assistant message.
type Exchange struct {
	Conv         *Conversation
	UserMsg      *Message
	AssistantMsg *Message
}

// StartExchange prepares conversation and message rows for a stream. With an
// empty conversation ID a new conversation titled from the message is
// created. retryMessageID replays an existing user message instead of
// inserting a new one.
func (s *Service) StartExchange(ctx context.Context, u *user.User, conversationID, userMessage, retryMessageID string) (*Exchange, error) {
	var conv *Conversation
	var err error
	if conversationID != "" {
		conv, err = s.GetOwnedConversation(ctx, u, conversationID)
		if err != nil {
			return nil, err
		}
	} else {
		conv, err = s.CreateConversation(ctx, u, TitleFromMessage(userMessage))
		if err != nil {
			return nil, err
		}
	}

	var userMsg *Message
	if retryMessageID != "" {
		userMsg, err = s.repo.FindMessageByPublicID(ctx, retryMessageID)
		if err != nil || userMsg.ConversationID != conv.ID {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "message not found", err, "c3f8b2e9-6d1a-4475-9b0c-8e4f2a7d1c59")
		}
		userMsg.Status = StatusCompleted
		if err := s.repo.UpdateMessage(ctx, userMsg); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update retried message")
		}
	} else {
		userMsg, err = s.newMessage(ctx, conv.ID, RoleUser, userMessage)
		if err != nil {
			return nil, err
		}
	}

	assistantMsg, err := s.newMessage(ctx, conv.ID, RoleAssistant, "")
	if err != nil {
		return nil, err
	}

	return &Exchange{Conv: conv, UserMsg: userMsg, AssistantMsg: assistantMsg}, nil
}

func (s *Service) newMessage(ctx context.Context, conversationID uint, role MessageRole, content string) (*Message, error) {
	publicID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate message ID", err, "d7a2c5f8-3b9e-4160-a8d4-6f1c9e2b5a37")
	}
	msg := &Message{
		PublicID:       publicID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Status:         StatusPending,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create message")
	}
	return msg, nil
}

// HistoryFor builds the upstream history for an exchange: every completed
// message plus the exchange's own user message, in chronological order.
func (s *Service) HistoryFor(ctx context.Context, ex *Exchange) ([]prompt.HistoryMessage, error) {
	msgs, err := s.repo.FindMessages(ctx, ex.Conv.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load history")
	}
	history := make([]prompt.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Status == StatusCompleted || m.ID == ex.UserMsg.ID {
			history = append(history, prompt.HistoryMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	return history, nil
}

// CheckpointAssistant persists partial streamed content with the status left
// pending. Loss of the last few increments on a crash is acceptable.
func (s *Service) CheckpointAssistant(ctx context.Context, ex *Exchange, content string) error {
	ex.AssistantMsg.Content = content
	if err := s.repo.UpdateMessage(ctx, ex.AssistantMsg); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to checkpoint message")
	}
	return nil
}

// CompleteExchange finalizes a successful stream: assistant and user
// messages become completed, the conversation total and user quota are
// charged, and the title is refreshed from the user message while the
// conversation has at most two completed messages. All four writes commit
// in one transaction; on failure the in-memory exchange is restored to its
// pre-call state so the caller can still settle the row as cancelled and
// uncharged.
func (s *Service) CompleteExchange(ctx context.Context, u *user.User, ex *Exchange, content string, promptTokens, completionTokens int) error {
	assistantSnap := *ex.AssistantMsg
	userMsgSnap := *ex.UserMsg
	convSnap := *ex.Conv
	userSnap := *u

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		totalTokens := promptTokens + completionTokens

		ex.AssistantMsg.Content = content
		ex.AssistantMsg.Status = StatusCompleted
		ex.AssistantMsg.PromptTokens = promptTokens
		ex.AssistantMsg.CompletionTokens = completionTokens
		ex.AssistantMsg.TotalTokens = totalTokens
		if err := s.repo.UpdateMessage(ctx, ex.AssistantMsg); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to complete assistant message")
		}

		if ex.UserMsg.Status != StatusCompleted {
			ex.UserMsg.Status = StatusCompleted
			if err := s.repo.UpdateMessage(ctx, ex.UserMsg); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to complete user message")
			}
		}

		ex.Conv.TotalTokens += int64(totalTokens)
		msgs, err := s.repo.FindMessages(ctx, ex.Conv.ID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load messages")
		}
		completed := 0
		for _, m := range msgs {
			if m.Status == StatusCompleted {
				completed++
			}
		}
		if completed <= 2 {
			ex.Conv.Title = TitleFromMessage(ex.UserMsg.Content)
		}
		if err := s.repo.Update(ctx, ex.Conv); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist conversation totals")
		}

		u.AddTokensUsed(int64(totalTokens))
		if err := s.users.Update(ctx, u); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to charge user quota")
		}
		return nil
	})
	if err != nil {
		*ex.AssistantMsg = assistantSnap
		*ex.UserMsg = userMsgSnap
		*ex.Conv = convSnap
		*u = userSnap
	}
	return err
}

// DiscardAssistant drops the assistant row of a stream that failed before
// producing any output, so the row is never left pending.
func (s *Service) DiscardAssistant(ctx context.Context, ex *Exchange) error {
	if err := s.repo.DeleteMessage(ctx, ex.AssistantMsg.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to discard assistant message")
	}
	return nil
}

// CancelAssistant finalizes a failed stream that accumulated partial text:
// the content is preserved and the status becomes cancelled, uncharged.
// Reconciliation or an explicit finalize settles the token charge later.
func (s *Service) CancelAssistant(ctx context.Context, ex *Exchange, content string) error {
	ex.AssistantMsg.Content = content
	ex.AssistantMsg.Status = StatusCancelled
	if err := s.repo.UpdateMessage(ctx, ex.AssistantMsg); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to cancel assistant message")
	}
	return nil
}
