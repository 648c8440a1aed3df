package tokenestimate

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "shorter than ratio", text: "ab", want: 0},
		{name: "exact multiple", text: "abcdef", want: 2},
		{name: "truncates remainder", text: "abcdefgh", want: 2},
		{name: "multi-byte vietnamese", text: "xin chào", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	contents := []string{"abcdef", "abcdefgh", ""}
	if got := EstimateMessages(contents); got != 4 {
		t.Errorf("EstimateMessages() = %d, want 4", got)
	}
}
