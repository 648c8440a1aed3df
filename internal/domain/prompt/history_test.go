package prompt

import (
	"fmt"
	"strings"
	"testing"

	"tutor-server/services/chat-api/internal/utils/tokenestimate"
)

func TestBuildKeepsHistoryUnderBudget(t *testing.T) {
	b := NewBuilder("system", 6, 8000)

	history := []HistoryMessage{
		{Role: "user", Content: "hello teacher"},
		{Role: "assistant", Content: "[Engsub] hello student"},
		{Role: "user", Content: "teach me something"},
	}

	got := b.Build(history)
	if len(got) != 3 {
		t.Fatalf("Build() kept %d messages, want 3", len(got))
	}
	for i := range history {
		if got[i] != history[i] {
			t.Errorf("Build()[%d] = %v, want %v (order must be chronological)", i, got[i], history[i])
		}
	}
}

func TestBuildCapsMessageCountFirst(t *testing.T) {
	b := NewBuilder("system", 6, 8000)

	history := make([]HistoryMessage, 10)
	for i := range history {
		history[i] = HistoryMessage{Role: "user", Content: fmt.Sprintf("message number %d", i)}
	}

	got := b.Build(history)
	if len(got) != 6 {
		t.Fatalf("Build() kept %d messages, want 6", len(got))
	}
	if got[0].Content != "message number 4" {
		t.Errorf("Build() oldest kept = %q, want the 4th message", got[0].Content)
	}
	if got[5].Content != "message number 9" {
		t.Errorf("Build() newest kept = %q, want the last message", got[5].Content)
	}
}

func TestBuildStopsAtFirstOverflow(t *testing.T) {
	// Budget fits the system prompt plus exactly two small messages.
	system := strings.Repeat("s", 30) // 10 tokens
	small := strings.Repeat("a", 30)  // 10 tokens each
	big := strings.Repeat("b", 300)   // 100 tokens

	b := NewBuilder(system, 6, 35)

	history := []HistoryMessage{
		{Role: "user", Content: small},
		{Role: "assistant", Content: big},
		{Role: "user", Content: small},
		{Role: "assistant", Content: small},
	}

	got := b.Build(history)

	// Walking newest to oldest: two small messages fit (10+10+10=30),
	// the big one overflows and stops the walk even though the oldest
	// small message would still fit on its own.
	if len(got) != 2 {
		t.Fatalf("Build() kept %d messages, want 2", len(got))
	}
	if got[0].Content != small || got[1].Content != small {
		t.Error("Build() kept wrong messages after overflow stop")
	}
}

func TestBuildLongestFittingSuffix(t *testing.T) {
	// Property: the result is always a suffix of the (count-capped) input,
	// and adding the next older message would exceed the budget.
	system := "system prompt"
	b := NewBuilder(system, 6, 100)

	history := []HistoryMessage{
		{Role: "user", Content: strings.Repeat("x", 120)},
		{Role: "assistant", Content: strings.Repeat("y", 90)},
		{Role: "user", Content: strings.Repeat("z", 150)},
	}

	got := b.Build(history)

	budget := tokenestimate.Estimate(system)
	for _, m := range got {
		budget += tokenestimate.Estimate(m.Content)
	}
	if budget > 100 {
		t.Errorf("kept history exceeds budget: %d > 100", budget)
	}

	// Verify suffix relation.
	offset := len(history) - len(got)
	for i, m := range got {
		if history[offset+i] != m {
			t.Errorf("Build() result is not a suffix of input at %d", i)
		}
	}

	if len(got) < len(history) {
		next := tokenestimate.Estimate(history[offset-1].Content)
		if budget+next <= 100 {
			t.Error("Build() stopped although the next older message still fit")
		}
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	b := NewBuilder(TutorPrompt, 6, 8000)
	if got := b.Build(nil); len(got) != 0 {
		t.Errorf("Build(nil) = %v, want empty", got)
	}
}

func TestBuildSystemPromptAloneOverBudget(t *testing.T) {
	b := NewBuilder(strings.Repeat("s", 3000), 6, 100)

	history := []HistoryMessage{{Role: "user", Content: "hi there"}}
	if got := b.Build(history); len(got) != 0 {
		t.Errorf("Build() kept %d messages with no room left, want 0", len(got))
	}
}
