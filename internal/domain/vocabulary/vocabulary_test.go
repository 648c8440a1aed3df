package vocabulary

import (
	"context"
	"testing"
	"time"

	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

type memRepo struct {
	items  map[uint]*Vocabulary
	nextID uint
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[uint]*Vocabulary{}}
}

func (r *memRepo) Create(_ context.Context, v *Vocabulary) error {
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now()
	stored := *v
	r.items[v.ID] = &stored
	return nil
}

func (r *memRepo) FindByUser(_ context.Context, userID uint) ([]*Vocabulary, error) {
	var out []*Vocabulary
	for id := r.nextID; id >= 1; id-- {
		if v, ok := r.items[id]; ok && v.UserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) FindByUserAndWord(ctx context.Context, userID uint, word string) (*Vocabulary, error) {
	for _, v := range r.items {
		if v.UserID == userID && v.Word == word {
			cp := *v
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "vocabulary not found", nil, "")
}

func (r *memRepo) FindByPublicID(ctx context.Context, publicID string) (*Vocabulary, error) {
	for _, v := range r.items {
		if v.PublicID == publicID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "vocabulary not found", nil, "")
}

func (r *memRepo) Update(_ context.Context, v *Vocabulary) error {
	stored := *v
	r.items[v.ID] = &stored
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uint) error {
	delete(r.items, id)
	return nil
}

func TestAddAndList(t *testing.T) {
	svc := NewService(newMemRepo())

	first, err := svc.Add(context.Background(), 1, "  hello ", "xin chào")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.Word != "hello" {
		t.Errorf("word = %q, want trimmed %q", first.Word, "hello")
	}
	if _, err := svc.Add(context.Background(), 1, "goodbye", ""); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	vocabs, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vocabs) != 2 {
		t.Fatalf("list = %d entries, want 2", len(vocabs))
	}
	if vocabs[0].Word != "goodbye" {
		t.Errorf("list[0] = %q, want newest first", vocabs[0].Word)
	}
}

func TestAddEmptyWord(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Add(context.Background(), 1, "   ", "note")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("empty word error = %v, want validation", err)
	}
}

func TestAddDuplicateConflict(t *testing.T) {
	svc := NewService(newMemRepo())
	if _, err := svc.Add(context.Background(), 1, "hello", ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	existing, err := svc.Add(context.Background(), 1, "hello", "again")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Fatalf("duplicate error = %v, want conflict", err)
	}
	if existing == nil || existing.Word != "hello" {
		t.Errorf("conflict did not return the existing entry")
	}

	// Same word for another learner is fine.
	if _, err := svc.Add(context.Background(), 2, "hello", ""); err != nil {
		t.Errorf("Add for other user: %v", err)
	}
}

func TestAddEscapesMarkup(t *testing.T) {
	svc := NewService(newMemRepo())
	v, err := svc.Add(context.Background(), 1, "<b>word</b>", "<i>note</i>")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v.Word != "&lt;b&gt;word&lt;/b&gt;" {
		t.Errorf("word = %q, markup not escaped", v.Word)
	}
	if v.Note != "&lt;i&gt;note&lt;/i&gt;" {
		t.Errorf("note = %q, markup not escaped", v.Note)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	svc := NewService(newMemRepo())
	v, err := svc.Add(context.Background(), 1, "hello", "old note")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	note := "new note"
	updated, err := svc.Update(context.Background(), 1, v.PublicID, nil, &note)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Word != "hello" || updated.Note != "new note" {
		t.Errorf("updated = %q/%q, want word untouched and note replaced", updated.Word, updated.Note)
	}

	empty := " "
	if _, err := svc.Update(context.Background(), 1, v.PublicID, &empty, nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("blank word update error = %v, want validation", err)
	}
}

func TestOwnershipIsNotFound(t *testing.T) {
	svc := NewService(newMemRepo())
	v, err := svc.Add(context.Background(), 1, "hello", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := svc.Update(context.Background(), 2, v.PublicID, nil, nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("foreign update error = %v, want not found", err)
	}
	if err := svc.Delete(context.Background(), 2, v.PublicID); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("foreign delete error = %v, want not found", err)
	}
}

func TestDelete(t *testing.T) {
	svc := NewService(newMemRepo())
	v, err := svc.Add(context.Background(), 1, "hello", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Delete(context.Background(), 1, v.PublicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	vocabs, _ := svc.List(context.Background(), 1)
	if len(vocabs) != 0 {
		t.Errorf("list after delete = %d entries, want 0", len(vocabs))
	}
}
