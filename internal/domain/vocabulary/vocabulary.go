package vocabulary

import (
	"context"
	"html"
	"strings"
	"time"
)

const (
	MaxWordLength = 200
	MaxNoteLength = 1000
)

// Vocabulary is a word a learner saved during a lesson, with an optional
// personal note.
type Vocabulary struct {
	ID        uint
	PublicID  string
	UserID    uint
	Word      string
	Note      string
	CreatedAt time.Time
}

// Repository persists vocabulary entries.
type Repository interface {
	Create(ctx context.Context, v *Vocabulary) error
	FindByUser(ctx context.Context, userID uint) ([]*Vocabulary, error)
	FindByUserAndWord(ctx context.Context, userID uint, word string) (*Vocabulary, error)
	FindByPublicID(ctx context.Context, publicID string) (*Vocabulary, error)
	Update(ctx context.Context, v *Vocabulary) error
	Delete(ctx context.Context, id uint) error
}

// sanitize trims, caps the rune length and HTML-escapes user input.
func sanitize(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxRunes {
		s = string(runes[:maxRunes])
	}
	return html.EscapeString(s)
}
