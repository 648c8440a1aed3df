// Package tokenestimate provides the byte-length token heuristic used for
// prompt budgeting and usage accounting when the upstream provider does not
// report exact counts.
package tokenestimate

// Estimate approximates the token count of text as len(text)/3. The ratio
// was calibrated against mixed Vietnamese/English tutor transcripts and is
// intentionally byte based so multi-byte characters weigh more.
func Estimate(text string) int {
	return len(text) / 3
}

// EstimateMessages sums Estimate over a slice of message contents.
func EstimateMessages(contents []string) int {
	total := 0
	for _, content := range contents {
		total += Estimate(content)
	}
	return total
}
