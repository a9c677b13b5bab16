package sink

import (
	"beam-chat/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// LogSink writes every notification to the structured log.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (l LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ChannelJoined:
		l.log.Info("Channel joined", "channel", evt.Token, "role", evt.Role, "reconnect", evt.Reconnect)
	case event.ChannelLeft:
		l.log.Info("Channel left", "channel", evt.Token)
	case event.Disconnected:
		l.log.Warn("Disconnected", "channel", evt.Token, "reason", evt.Reason)
	case event.MessageReceived:
		l.log.Info("Message",
			"channel", evt.Token,
			"author", evt.Author.Username,
			"text", evt.Message.Censored,
			"lang", evt.Message.Lang,
			"emotes", len(evt.Message.Emotes),
		)
	case event.ParticipantJoined:
		if !evt.Initial {
			l.log.Debug("Participant joined", "channel", evt.Token, "user", evt.Participant.Username)
		}
	case event.ParticipantLeft:
		l.log.Debug("Participant left", "channel", evt.Token, "user", evt.Username)
	case event.ParticipantUpdated:
		l.log.Debug("Participant updated", "channel", evt.Token, "user", evt.Participant.Username,
			"roles", evt.Participant.Roles)
	case event.MessageDeleted:
		l.log.Info("Message deleted", "channel", evt.Token, "id", evt.MessageID)
	case event.ChatCleared:
		l.log.Info("Chat cleared", "channel", evt.Token)
	case event.ChannelUpdated:
		l.log.Info("Channel updated", "channel", evt.Token, "slow_chat", evt.SlowChat)
	default:
		l.log.Debug(fmt.Sprintf("Not logged event : %T", evt))
	}
	return nil
}
