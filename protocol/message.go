package protocol

import (
	"beam-chat/domain"
	"regexp"
	"strings"
)

var htmlTags = regexp.MustCompile(`(?i)</?([a-z][a-z0-9]*)\b[^>]*>`)

// Reassemble flattens formatted parts into plain text and collects the emoticons.
// Text parts contribute their data, every other part its display text.
func Reassemble(parts []domain.MessagePart) (string, []domain.MessagePart) {
	var b strings.Builder
	var emotes []domain.MessagePart
	for _, part := range parts {
		if part.Type == domain.TextPart {
			b.WriteString(part.Data)
			continue
		}
		if part.Type == domain.EmoticonPart {
			emotes = append(emotes, part)
		}
		b.WriteString(part.Text)
	}
	return StripHTML(b.String()), emotes
}

func StripHTML(input string) string {
	return htmlTags.ReplaceAllString(input, "")
}
