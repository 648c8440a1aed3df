package responses

import (
	"time"

	"tutor-server/services/chat-api/internal/domain/vocabulary"
)

// VocabularyResponse is one saved word.
type VocabularyResponse struct {
	ID        string `json:"id"`
	Word      string `json:"word"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
}

// VocabularyListResponse wraps the notebook listing.
type VocabularyListResponse struct {
	Vocabularies []VocabularyResponse `json:"vocabularies"`
}

func NewVocabularyResponse(v *vocabulary.Vocabulary) VocabularyResponse {
	return VocabularyResponse{
		ID:        v.PublicID,
		Word:      v.Word,
		Note:      v.Note,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewVocabularyListResponse(items []*vocabulary.Vocabulary) VocabularyListResponse {
	out := make([]VocabularyResponse, 0, len(items))
	for _, v := range items {
		out = append(out, NewVocabularyResponse(v))
	}
	return VocabularyListResponse{Vocabularies: out}
}
