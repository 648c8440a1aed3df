package vocabulary

import (
	"context"

	"tutor-server/services/chat-api/internal/utils/idgen"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// Service handles vocabulary notebook operations for a learner.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the learner's saved words, newest first.
func (s *Service) List(ctx context.Context, userID uint) ([]*Vocabulary, error) {
	vocabs, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list vocabularies")
	}
	return vocabs, nil
}

// Add saves a new word. The same word saved twice by one learner is a
// conflict and the existing entry is returned alongside the error.
func (s *Service) Add(ctx context.Context, userID uint, word, note string) (*Vocabulary, error) {
	word = sanitize(word, MaxWordLength)
	note = sanitize(note, MaxNoteLength)
	if word == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "Từ vựng không được để trống", nil, "7e4a1f9c-2d6b-4805-93a7-c5e8b1d4f260")
	}

	if existing, err := s.repo.FindByUserAndWord(ctx, userID, word); err == nil && existing != nil {
		return existing, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "Từ này đã có trong danh sách", nil, "8c2f6b3d-9a1e-4472-b5c8-0d7e3a9f1b54")
	}

	publicID, err := idgen.GenerateSecureID("vocab", 12)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate vocabulary ID", err, "9b5d2a8f-4c7e-4136-a9d0-6f3b8e1c5a72")
	}
	v := &Vocabulary{PublicID: publicID, UserID: userID, Word: word, Note: note}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save vocabulary")
	}
	return v, nil
}

// Update edits the word and/or note of an owned entry. A nil field is left
// untouched.
func (s *Service) Update(ctx context.Context, userID uint, publicID string, word, note *string) (*Vocabulary, error) {
	v, err := s.owned(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if word != nil {
		w := sanitize(*word, MaxWordLength)
		if w == "" {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "Từ vựng không được để trống", nil, "a6e3c9f1-8b2d-4750-9e4a-1c5f7b3d8a96")
		}
		v.Word = w
	}
	if note != nil {
		v.Note = sanitize(*note, MaxNoteLength)
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update vocabulary")
	}
	return v, nil
}

// Delete removes an owned entry.
func (s *Service) Delete(ctx context.Context, userID uint, publicID string) error {
	v, err := s.owned(ctx, userID, publicID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, v.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete vocabulary")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID uint, publicID string) (*Vocabulary, error) {
	v, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "Không tìm thấy từ vựng")
	}
	if v.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "Không tìm thấy từ vựng", nil, "b8f1d6c3-5a9e-4284-b0d7-2e6c9a4f1b38")
	}
	return v, nil
}
