package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
	"tutor-server/services/chat-api/internal/utils/tokenestimate"
)

type fakeRepo struct {
	convs   map[uint]*Conversation
	msgs    map[uint]*Message
	nextCID uint
	nextMID uint

	// failUpdate makes conversation Update fail, for settlement rollback
	// tests.
	failUpdate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{convs: map[uint]*Conversation{}, msgs: map[uint]*Message{}}
}

func (r *fakeRepo) Create(_ context.Context, conv *Conversation) error {
	r.nextCID++
	conv.ID = r.nextCID
	conv.CreatedAt = time.Now()
	stored := *conv
	r.convs[conv.ID] = &stored
	return nil
}

func (r *fakeRepo) FindByPublicID(ctx context.Context, publicID string) (*Conversation, error) {
	for _, c := range r.convs {
		if c.PublicID == publicID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
}

func (r *fakeRepo) FindByFilter(_ context.Context, f Filter) ([]*Conversation, error) {
	var out []*Conversation
	for _, c := range r.convs {
		if f.ID != nil && c.ID != *f.ID {
			continue
		}
		if f.PublicID != nil && c.PublicID != *f.PublicID {
			continue
		}
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		if f.IsDeleted != nil && c.IsDeleted != *f.IsDeleted {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, conv *Conversation) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.convs[conv.ID]; !ok {
		return errors.New("missing conversation")
	}
	stored := *conv
	r.convs[conv.ID] = &stored
	return nil
}

func (r *fakeRepo) HardDelete(_ context.Context, id uint) error {
	delete(r.convs, id)
	for mid, m := range r.msgs {
		if m.ConversationID == id {
			delete(r.msgs, mid)
		}
	}
	return nil
}

func (r *fakeRepo) HardDeleteSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range r.convs {
		if c.IsDeleted && c.DeletedAt != nil && c.DeletedAt.Before(cutoff) {
			_ = r.HardDelete(ctx, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) FindMessages(_ context.Context, conversationID uint) ([]Message, error) {
	var out []Message
	for id := uint(1); id <= r.nextMID; id++ {
		if m, ok := r.msgs[id]; ok && m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindMessageByPublicID(ctx context.Context, publicID string) (*Message, error) {
	for _, m := range r.msgs {
		if m.PublicID == publicID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "message not found", nil, "")
}

func (r *fakeRepo) CreateMessage(_ context.Context, msg *Message) error {
	r.nextMID++
	msg.ID = r.nextMID
	msg.CreatedAt = time.Now()
	stored := *msg
	r.msgs[msg.ID] = &stored
	return nil
}

func (r *fakeRepo) UpdateMessage(_ context.Context, msg *Message) error {
	if _, ok := r.msgs[msg.ID]; !ok {
		return errors.New("missing message")
	}
	stored := *msg
	r.msgs[msg.ID] = &stored
	return nil
}

func (r *fakeRepo) DeleteMessage(_ context.Context, id uint) error {
	delete(r.msgs, id)
	return nil
}

type fakeUserRepo struct {
	users map[uint]*user.User
}

func (r *fakeUserRepo) FindByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	for _, u := range r.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "user not found", nil, "")
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (*user.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errors.New("user not found")
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if r.users == nil {
		r.users = map[uint]*user.User{}
	}
	u.ID = uint(len(r.users) + 1)
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

// fakeTx mimics a real transaction against the map-backed fakes: repo and
// user state is snapshotted before fn and restored when fn errors.
type fakeTx struct {
	repo  *fakeRepo
	users *fakeUserRepo
}

func (t *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	convs := make(map[uint]*Conversation, len(t.repo.convs))
	for id, c := range t.repo.convs {
		cp := *c
		convs[id] = &cp
	}
	msgs := make(map[uint]*Message, len(t.repo.msgs))
	for id, m := range t.repo.msgs {
		cp := *m
		msgs[id] = &cp
	}
	users := make(map[uint]*user.User, len(t.users.users))
	for id, u := range t.users.users {
		cp := *u
		users[id] = &cp
	}

	if err := fn(ctx); err != nil {
		t.repo.convs, t.repo.msgs = convs, msgs
		t.users.users = users
		return err
	}
	return nil
}

type fixture struct {
	svc   *Service
	repo  *fakeRepo
	users *fakeUserRepo
	user  *user.User
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newFakeRepo(),
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.users = &fakeUserRepo{users: map[uint]*user.User{}}
	f.user = &user.User{ExternalID: "ext-1", Username: "hoa", TokenLimit: 100000, Voices: speech.DefaultVoiceConfig()}
	if err := f.users.Create(context.Background(), f.user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	f.svc = NewServiceWithClock(f.repo, f.users, &fakeTx{repo: f.repo, users: f.users}, 15*time.Second, func() time.Time { return f.now })
	return f
}

func TestCreateConversationDefaults(t *testing.T) {
	f := newFixture(t)
	conv, err := f.svc.CreateConversation(context.Background(), f.user, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", conv.Title, DefaultTitle)
	}
	if conv.UserID != f.user.ID {
		t.Errorf("owner = %d, want %d", conv.UserID, f.user.ID)
	}
	if conv.PublicID == "" || conv.PublicID[:5] != "conv_" {
		t.Errorf("public ID %q lacks conv_ prefix", conv.PublicID)
	}
}

func TestGetOwnedConversationForeignIsNotFound(t *testing.T) {
	f := newFixture(t)
	conv, err := f.svc.CreateConversation(context.Background(), f.user, "mine")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	other := &user.User{ExternalID: "ext-2", TokenLimit: 100000}
	if err := f.users.Create(context.Background(), other); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, err = f.svc.GetOwnedConversation(context.Background(), other, conv.PublicID)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("foreign conversation error = %v, want not found", err)
	}
}

func TestRestoreWithinWindow(t *testing.T) {
	f := newFixture(t)
	conv, _ := f.svc.CreateConversation(context.Background(), f.user, "t")
	if err := f.svc.SoftDelete(context.Background(), f.user, conv.PublicID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	f.now = f.now.Add(10 * time.Second)
	restored, err := f.svc.Restore(context.Background(), f.user, conv.PublicID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.IsDeleted || restored.DeletedAt != nil {
		t.Errorf("restore left conversation deleted")
	}
}

func TestRestoreAfterWindowFails(t *testing.T) {
	f := newFixture(t)
	conv, _ := f.svc.CreateConversation(context.Background(), f.user, "t")
	if err := f.svc.SoftDelete(context.Background(), f.user, conv.PublicID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	f.now = f.now.Add(16 * time.Second)
	_, err := f.svc.Restore(context.Background(), f.user, conv.PublicID)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("late restore error = %v, want validation", err)
	}
}

func TestListPurgesExpiredSoftDeletes(t *testing.T) {
	f := newFixture(t)
	keep, _ := f.svc.CreateConversation(context.Background(), f.user, "keep")
	gone, _ := f.svc.CreateConversation(context.Background(), f.user, "gone")
	if err := f.svc.SoftDelete(context.Background(), f.user, gone.PublicID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	f.now = f.now.Add(time.Minute)
	convs, err := f.svc.ListConversations(context.Background(), f.user)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].PublicID != keep.PublicID {
		t.Fatalf("list = %d conversations, want only %q", len(convs), keep.PublicID)
	}
	if _, err := f.repo.FindByPublicID(context.Background(), gone.PublicID); err == nil {
		t.Errorf("expired soft-delete was not purged")
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	conv, _ := f.svc.CreateConversation(context.Background(), f.user, "t")
	if err := f.svc.SoftDelete(context.Background(), f.user, conv.PublicID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	f.now = f.now.Add(14 * time.Second)
	n, err := f.svc.SweepExpired(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("early sweep = (%d, %v), want (0, nil)", n, err)
	}

	f.now = f.now.Add(2 * time.Second)
	n, err = f.svc.SweepExpired(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("sweep = (%d, %v), want (1, nil)", n, err)
	}
}

func TestReconcilePendingAssistantWithContent(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "xin chào cô giáo")
	if err := f.svc.CheckpointAssistant(context.Background(), ex, "Chào em, hôm nay học gì?"); err != nil {
		t.Fatalf("CheckpointAssistant: %v", err)
	}

	detail, err := f.svc.GetConversationDetail(context.Background(), f.user, ex.Conv.PublicID)
	if err != nil {
		t.Fatalf("GetConversationDetail: %v", err)
	}

	var assistant *Message
	for i := range detail.Messages {
		if detail.Messages[i].Role == RoleAssistant {
			assistant = &detail.Messages[i]
		}
	}
	if assistant == nil {
		t.Fatal("assistant message missing after reconciliation")
	}
	if assistant.Status != StatusCancelled {
		t.Errorf("assistant status = %q, want cancelled", assistant.Status)
	}
	wantCompletion := tokenestimate.Estimate("Chào em, hôm nay học gì?")
	if assistant.CompletionTokens != wantCompletion {
		t.Errorf("completion tokens = %d, want %d", assistant.CompletionTokens, wantCompletion)
	}
	if assistant.PromptTokens != wantCompletion*CancelledPromptFactor {
		t.Errorf("prompt tokens = %d, want %d", assistant.PromptTokens, wantCompletion*CancelledPromptFactor)
	}
	wantTotal := int64(wantCompletion * (CancelledPromptFactor + 1))
	if detail.TotalTokens != wantTotal {
		t.Errorf("conversation total = %d, want %d", detail.TotalTokens, wantTotal)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != wantTotal {
		t.Errorf("user tokens used = %d, want %d", got, wantTotal)
	}
}

func TestReconcileChargesOnce(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "câu hỏi")
	if err := f.svc.CheckpointAssistant(context.Background(), ex, "một câu trả lời dang dở"); err != nil {
		t.Fatalf("CheckpointAssistant: %v", err)
	}

	if _, err := f.svc.GetConversationDetail(context.Background(), f.user, ex.Conv.PublicID); err != nil {
		t.Fatalf("first detail: %v", err)
	}
	charged := f.users.users[f.user.ID].TotalTokensUsed

	if _, err := f.svc.GetConversationDetail(context.Background(), f.user, ex.Conv.PublicID); err != nil {
		t.Fatalf("second detail: %v", err)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != charged {
		t.Errorf("second reconciliation recharged: %d -> %d", charged, got)
	}
}

func TestReconcileDropsEmptyAssistantAndCancelsUser(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "bị rớt mạng")

	detail, err := f.svc.GetConversationDetail(context.Background(), f.user, ex.Conv.PublicID)
	if err != nil {
		t.Fatalf("GetConversationDetail: %v", err)
	}
	if len(detail.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 (empty assistant dropped)", len(detail.Messages))
	}
	if detail.Messages[0].Role != RoleUser || detail.Messages[0].Status != StatusCancelled {
		t.Errorf("user message = %q/%q, want user/cancelled", detail.Messages[0].Role, detail.Messages[0].Status)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != 0 {
		t.Errorf("empty stream charged %d tokens", got)
	}
}

func TestFinalizeMessageCoercesStatus(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "hello")
	if err := f.svc.CheckpointAssistant(context.Background(), ex, "partial answer"); err != nil {
		t.Fatalf("CheckpointAssistant: %v", err)
	}

	msg, err := f.svc.FinalizeMessage(context.Background(), f.user, ex.AssistantMsg.PublicID, "exploded")
	if err != nil {
		t.Fatalf("FinalizeMessage: %v", err)
	}
	if msg.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled for unknown input", msg.Status)
	}
	if msg.TotalTokens == 0 {
		t.Errorf("finalize did not charge a message with content")
	}

	again, err := f.svc.FinalizeMessage(context.Background(), f.user, ex.AssistantMsg.PublicID, "completed")
	if err != nil {
		t.Fatalf("second FinalizeMessage: %v", err)
	}
	if again.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", again.Status)
	}
	if again.TotalTokens != msg.TotalTokens {
		t.Errorf("repeated finalize recharged: %d -> %d", msg.TotalTokens, again.TotalTokens)
	}
}

func TestFinalizeMessageForeignOwner(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "hello")

	other := &user.User{ExternalID: "ext-2", TokenLimit: 100000}
	if err := f.users.Create(context.Background(), other); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, err := f.svc.FinalizeMessage(context.Background(), other, ex.UserMsg.PublicID, "cancelled")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Errorf("foreign finalize error = %v, want forbidden", err)
	}
}

func TestStartExchangeCreatesConversationAndMessages(t *testing.T) {
	f := newFixture(t)
	ex, err := f.svc.StartExchange(context.Background(), f.user, "", "Tôi muốn học tiếng Anh", "")
	if err != nil {
		t.Fatalf("StartExchange: %v", err)
	}
	if ex.Conv.Title == DefaultTitle || ex.Conv.Title == "" {
		t.Errorf("title = %q, want derived from message", ex.Conv.Title)
	}
	if ex.UserMsg.Status != StatusPending || ex.AssistantMsg.Status != StatusPending {
		t.Errorf("new messages not pending: user=%q assistant=%q", ex.UserMsg.Status, ex.AssistantMsg.Status)
	}
	if ex.AssistantMsg.Content != "" {
		t.Errorf("assistant content = %q, want empty", ex.AssistantMsg.Content)
	}
}

func TestStartExchangeRetryReusesMessage(t *testing.T) {
	f := newFixture(t)
	first := startExchange(t, f, "câu đầu tiên")

	retry, err := f.svc.StartExchange(context.Background(), f.user, first.Conv.PublicID, "", first.UserMsg.PublicID)
	if err != nil {
		t.Fatalf("retry StartExchange: %v", err)
	}
	if retry.UserMsg.ID != first.UserMsg.ID {
		t.Errorf("retry created a new user message")
	}
	if retry.UserMsg.Status != StatusCompleted {
		t.Errorf("retried user message status = %q, want completed", retry.UserMsg.Status)
	}
	if retry.AssistantMsg.ID == first.AssistantMsg.ID {
		t.Errorf("retry reused the old assistant message")
	}
}

func TestHistoryForIncludesCompletedAndOwnUserMessage(t *testing.T) {
	f := newFixture(t)
	first := startExchange(t, f, "câu một")
	if err := f.svc.CompleteExchange(context.Background(), f.user, first, "trả lời một", 30, 10); err != nil {
		t.Fatalf("CompleteExchange: %v", err)
	}

	second, err := f.svc.StartExchange(context.Background(), f.user, first.Conv.PublicID, "câu hai", "")
	if err != nil {
		t.Fatalf("second StartExchange: %v", err)
	}
	history, err := f.svc.HistoryFor(context.Background(), second)
	if err != nil {
		t.Fatalf("HistoryFor: %v", err)
	}

	want := []string{"câu một", "trả lời một", "câu hai"}
	if len(history) != len(want) {
		t.Fatalf("history = %d entries, want %d", len(history), len(want))
	}
	for i, content := range want {
		if history[i].Content != content {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Content, content)
		}
	}
}

func TestCompleteExchangeChargesAndTitles(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "Một tin nhắn rất dài vượt quá ba mươi ký tự để kiểm tra tiêu đề")

	if err := f.svc.CompleteExchange(context.Background(), f.user, ex, "câu trả lời", 50, 20); err != nil {
		t.Fatalf("CompleteExchange: %v", err)
	}

	conv, err := f.repo.FindByPublicID(context.Background(), ex.Conv.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID: %v", err)
	}
	if conv.TotalTokens != 70 {
		t.Errorf("conversation total = %d, want 70", conv.TotalTokens)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != 70 {
		t.Errorf("user tokens used = %d, want 70", got)
	}
	want := TitleFromMessage("Một tin nhắn rất dài vượt quá ba mươi ký tự để kiểm tra tiêu đề")
	if conv.Title != want {
		t.Errorf("title = %q, want %q", conv.Title, want)
	}

	// A second completed exchange leaves the title alone.
	second, err := f.svc.StartExchange(context.Background(), f.user, ex.Conv.PublicID, "đổi chủ đề hoàn toàn khác", "")
	if err != nil {
		t.Fatalf("second StartExchange: %v", err)
	}
	if err := f.svc.CompleteExchange(context.Background(), f.user, second, "vâng", 10, 5); err != nil {
		t.Fatalf("second CompleteExchange: %v", err)
	}
	conv, _ = f.repo.FindByPublicID(context.Background(), ex.Conv.PublicID)
	if conv.Title != want {
		t.Errorf("second exchange changed title to %q", conv.Title)
	}
	if conv.TotalTokens != 85 {
		t.Errorf("conversation total = %d, want 85", conv.TotalTokens)
	}
}

func TestCompleteExchangeRollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "một câu hỏi")
	if err := f.svc.CheckpointAssistant(context.Background(), ex, "một phần câu trả lời"); err != nil {
		t.Fatalf("CheckpointAssistant: %v", err)
	}

	f.repo.failUpdate = errors.New("connection reset")
	if err := f.svc.CompleteExchange(context.Background(), f.user, ex, "câu trả lời đầy đủ", 100, 10); err == nil {
		t.Fatal("CompleteExchange succeeded despite failing conversation write")
	}

	// Nothing committed: the assistant row keeps its checkpointed state.
	msg, err := f.repo.FindMessageByPublicID(context.Background(), ex.AssistantMsg.PublicID)
	if err != nil {
		t.Fatalf("FindMessageByPublicID: %v", err)
	}
	if msg.Status != StatusPending {
		t.Errorf("assistant status = %q, want pending after rollback", msg.Status)
	}
	if msg.TotalTokens != 0 {
		t.Errorf("assistant totals = %d, want 0 after rollback", msg.TotalTokens)
	}
	conv, _ := f.repo.FindByPublicID(context.Background(), ex.Conv.PublicID)
	if conv.TotalTokens != 0 {
		t.Errorf("conversation total = %d, want 0 after rollback", conv.TotalTokens)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != 0 {
		t.Errorf("user charged %d tokens on a rolled-back exchange", got)
	}

	// The in-memory exchange is restored too, so the caller can settle it.
	if ex.AssistantMsg.Status != StatusPending || ex.AssistantMsg.TotalTokens != 0 {
		t.Errorf("exchange struct = %q/%d, want pending/0", ex.AssistantMsg.Status, ex.AssistantMsg.TotalTokens)
	}

	// Once the store recovers, reconciliation settles and charges the row.
	f.repo.failUpdate = nil
	detail, err := f.svc.GetConversationDetail(context.Background(), f.user, ex.Conv.PublicID)
	if err != nil {
		t.Fatalf("GetConversationDetail: %v", err)
	}
	wantCompletion := tokenestimate.Estimate("một phần câu trả lời")
	wantTotal := int64(wantCompletion * (CancelledPromptFactor + 1))
	if detail.TotalTokens != wantTotal {
		t.Errorf("reconciled total = %d, want %d", detail.TotalTokens, wantTotal)
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != wantTotal {
		t.Errorf("reconciled user charge = %d, want %d", got, wantTotal)
	}
}

func TestFinalizeMessageRollsBackChargeOnFailure(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "hỏi")
	if err := f.svc.CheckpointAssistant(context.Background(), ex, "nội dung dang dở"); err != nil {
		t.Fatalf("CheckpointAssistant: %v", err)
	}

	f.repo.failUpdate = errors.New("db down")
	if _, err := f.svc.FinalizeMessage(context.Background(), f.user, ex.AssistantMsg.PublicID, "cancelled"); err == nil {
		t.Fatal("FinalizeMessage succeeded despite failing conversation write")
	}
	if got := f.users.users[f.user.ID].TotalTokensUsed; got != 0 {
		t.Errorf("user charged %d tokens on a rolled-back finalize", got)
	}
	if f.user.TotalTokensUsed != 0 {
		t.Errorf("in-memory user kept a rolled-back charge of %d", f.user.TotalTokensUsed)
	}
	msg, err := f.repo.FindMessageByPublicID(context.Background(), ex.AssistantMsg.PublicID)
	if err != nil {
		t.Fatalf("FindMessageByPublicID: %v", err)
	}
	if msg.Status != StatusPending || msg.TotalTokens != 0 {
		t.Errorf("message = %q/%d, want pending/0 after rollback", msg.Status, msg.TotalTokens)
	}

	f.repo.failUpdate = nil
	settled, err := f.svc.FinalizeMessage(context.Background(), f.user, ex.AssistantMsg.PublicID, "cancelled")
	if err != nil {
		t.Fatalf("retry FinalizeMessage: %v", err)
	}
	if settled.Status != StatusCancelled || settled.TotalTokens == 0 {
		t.Errorf("retry = %q/%d, want cancelled and charged", settled.Status, settled.TotalTokens)
	}
}

func TestCancelAssistantPreservesContentWithoutCharge(t *testing.T) {
	f := newFixture(t)
	ex := startExchange(t, f, "hỏi")

	if err := f.svc.CancelAssistant(context.Background(), ex, "một phần câu trả lời"); err != nil {
		t.Fatalf("CancelAssistant: %v", err)
	}
	msg, err := f.repo.FindMessageByPublicID(context.Background(), ex.AssistantMsg.PublicID)
	if err != nil {
		t.Fatalf("FindMessageByPublicID: %v", err)
	}
	if msg.Status != StatusCancelled || msg.Content != "một phần câu trả lời" {
		t.Errorf("message = %q/%q, want cancelled with content preserved", msg.Status, msg.Content)
	}
	if msg.TotalTokens != 0 {
		t.Errorf("cancel charged %d tokens, settlement belongs to finalize", msg.TotalTokens)
	}
}

func startExchange(t *testing.T, f *fixture, message string) *Exchange {
	t.Helper()
	ex, err := f.svc.StartExchange(context.Background(), f.user, "", message, "")
	if err != nil {
		t.Fatalf("StartExchange: %v", err)
	}
	return ex
}

func TestRenameSanitizesTitle(t *testing.T) {
	f := newFixture(t)
	conv, err := f.svc.CreateConversation(context.Background(), f.user, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	renamed, err := f.svc.Rename(context.Background(), f.user, conv.PublicID, "  <b>Ngữ pháp</b>  ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Title != "&lt;b&gt;Ngữ pháp&lt;/b&gt;" {
		t.Errorf("title = %q, want escaped markup", renamed.Title)
	}

	if _, err := f.svc.Rename(context.Background(), f.user, conv.PublicID, "   "); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("blank rename err = %v, want validation", err)
	}
}
