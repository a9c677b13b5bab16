package sink_test

import (
	"beam-chat/domain"
	"beam-chat/domain/event"
	"beam-chat/mocks"
	"beam-chat/sink"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func message(author, text string) event.MessageReceived {
	return event.MessageReceived{
		Header:  event.Header{Channel: 1234, Token: "streamer"},
		Author:  domain.Participant{ID: "15", Username: author},
		Message: domain.Message{ID: "m1", CleanText: text, Censored: text},
	}
}

func TestCommandSink_Answers_Known_Command(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	replier := mocks.NewMockReplier(ctrl)
	s := sink.NewCommandSink(replier, logs.GetLoggerFromLevel(slog.LevelDebug), "Bot", nil)

	// Given a command typed with another case and arguments
	msg := message("carol", "  !PING now please")

	// Then the configured answer is sent as a reply
	replier.EXPECT().Reply(gomock.Any(), msg, "@user pong").Return(nil)

	req.NoError(s.Consume(context.Background(), msg))
}

func TestCommandSink_Ignores_Other_Messages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	replier := mocks.NewMockReplier(ctrl)
	s := sink.NewCommandSink(replier, slog.Default(), "bot", map[string]string{"!hi": "hello @user"})

	// No Reply expectation: any call fails the test
	req.NoError(s.Consume(context.Background(), message("carol", "hello there")))
	req.NoError(s.Consume(context.Background(), message("carol", "!ping")))
	req.NoError(s.Consume(context.Background(), message("carol", "")))
	req.NoError(s.Consume(context.Background(), message("BOT", "!hi")))
	req.NoError(s.Consume(context.Background(), event.ChatCleared{}))
}

func TestCommandSink_Reply_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	replier := mocks.NewMockReplier(ctrl)
	s := sink.NewCommandSink(replier, slog.Default(), "bot", map[string]string{"!hi": "hello @user"})
	boom := fmt.Errorf("boom")

	replier.EXPECT().Reply(gomock.Any(), gomock.Any(), "hello @user").Return(boom)

	req.ErrorIs(s.Consume(context.Background(), message("carol", "!hi")), boom)
}

func TestLogSink_Consume(t *testing.T) {
	req := require.New(t)
	s := sink.NewLogSink(logs.GetLoggerFromLevel(slog.LevelDebug))

	req.NoError(s.Consume(context.Background(), message("carol", "hi")))
	req.NoError(s.Consume(context.Background(), event.Disconnected{Reason: "EOF"}))
	req.NoError(s.Consume(context.Background(), event.PollStarted{}))
}
