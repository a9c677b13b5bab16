package sink

import (
	"beam-chat/contract"
	"beam-chat/domain/event"
	"context"
	"log/slog"
	"strings"
)

// DefaultCommands are answered when no command table is configured.
// Answers may use @user, @viewers and @chatters.
var DefaultCommands = map[string]string{
	"!ping":     "@user pong",
	"!viewers":  "@user there are @viewers viewers and @chatters chatters",
	"!commands": "@user try !ping or !viewers",
}

// CommandSink answers chat commands ("!ping") through a Replier.
// Messages sent by the bot itself are ignored.
type CommandSink struct {
	replier  contract.Replier
	log      *slog.Logger
	self     string
	commands map[string]string
}

func NewCommandSink(replier contract.Replier, log *slog.Logger, self string, commands map[string]string) *CommandSink {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	normalized := make(map[string]string, len(commands))
	for name, answer := range commands {
		normalized[strings.ToLower(name)] = answer
	}
	return &CommandSink{replier: replier, log: log, self: strings.ToLower(self), commands: normalized}
}

func (c *CommandSink) Consume(ctx context.Context, e event.DomainEvent) error {
	msg, ok := e.(event.MessageReceived)
	if !ok || strings.ToLower(msg.Author.Username) == c.self {
		return nil
	}
	fields := strings.Fields(msg.Message.CleanText)
	if len(fields) == 0 {
		return nil
	}
	answer, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return nil
	}
	c.log.Debug("Answering command", "channel", msg.Token, "command", fields[0], "author", msg.Author.Username)
	return c.replier.Reply(ctx, msg, answer)
}
