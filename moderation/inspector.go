package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// minConfidence under which the detected language is not reported.
const minConfidence = 0.5

// Inspector censors inbound chat text and detects its language.
// The moderator is optional.
type Inspector struct {
	moderator *Moderator
	log       *slog.Logger
}

func NewInspector(moderator *Moderator, log *slog.Logger) *Inspector {
	return &Inspector{moderator: moderator, log: log}
}

// Inspect returns the censored text and the ISO 639-1 code of its language, empty when unsure.
func (i *Inspector) Inspect(text string) (string, string) {
	censored := text
	if i.moderator != nil {
		var words []string
		if censored, words = i.moderator.Censor(text); len(words) > 0 {
			i.log.Debug("Message censored", "words", words)
		}
	}
	if text == "" {
		return censored, ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() && info.Confidence < minConfidence {
		return censored, ""
	}
	return censored, info.Lang.Iso6391()
}
