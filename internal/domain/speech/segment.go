package speech

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Segment is one monolingual span of a bilingual tutor reply.
type Segment struct {
	Text string   `json:"text"`
	Lang Language `json:"lang"`
}

var (
	actionsTail   = regexp.MustCompile(`(?is)\[Actions\].*$`)
	languageTag   = regexp.MustCompile(`(?i)\[(Vietsub|Engsub)\]`)
	boldSpan      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	markupChars   = regexp.MustCompile("[*#_`~]")
	leadingAnswer = regexp.MustCompile(`^[A-Z]\s*-\s*`)
)

// SplitByLanguage parses a tagged tutor reply into ordered monolingual
// segments. The trailing [Actions] block is discarded first. A span that
// still contains bracket characters after its tag (an embedded non-language
// tag) is dropped rather than truncated, as are spans shorter than two
// characters after markup stripping.
func SplitByLanguage(text string) []Segment {
	text = strings.TrimSpace(actionsTail.ReplaceAllString(text, ""))

	tags := languageTag.FindAllStringSubmatchIndex(text, -1)
	segments := make([]Segment, 0, len(tags))

	for i, tag := range tags {
		start := tag[1]
		end := len(text)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}

		content := text[start:end]
		if strings.ContainsAny(content, "[]") {
			continue
		}

		content = strings.TrimSpace(content)
		content = boldSpan.ReplaceAllString(content, "$1")
		content = markupChars.ReplaceAllString(content, "")
		if content == "" || utf8.RuneCountInString(content) < 2 {
			continue
		}

		lang := LangEnglish
		if strings.EqualFold(text[tag[2]:tag[3]], "Vietsub") {
			lang = LangVietnamese
		}
		segments = append(segments, Segment{Text: content, Lang: lang})
	}

	return segments
}

// CleanForSpeech strips markup and notation that reads badly aloud: markdown
// characters, a leading "A - " style answer label, double quotes, slashes in
// alternatives like "was/were", and ellipses.
func CleanForSpeech(text string) string {
	text = markupChars.ReplaceAllString(text, "")
	text = leadingAnswer.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `"`, "")
	text = strings.ReplaceAll(text, "/", " ")
	text = strings.ReplaceAll(text, "...", " ")
	return strings.TrimSpace(text)
}
