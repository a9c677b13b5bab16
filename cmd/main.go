package main

import (
	"beam-chat/api"
	"beam-chat/moderation"
	"beam-chat/repositories"
	"beam-chat/runtime"
	"beam-chat/runtime/workers"
	"beam-chat/sink"
	"beam-chat/transport"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until an interrupt, so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Credential store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	credentials := repositories.NewCredentialRepository(db)

	// 3. REST gateway & WebSocket transport
	jar, err := api.NewJarStore(log, credentials, config.Username, config.BaseURL)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	gateway, err := api.NewHTTPGateway(log, config.BaseURL, jar, config.RequestTimeout)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	dialer := transport.NewDialer(log, api.DefaultUserAgent)

	// 4. Inbound moderation
	inspector, err := buildInspector(config, log)
	if err != nil {
		return err
	}

	// 5. Client & sinks
	supervisor := workers.NewSupervisor(log).WithRestartDelay(config.RestartInterval)
	client := runtime.NewClient(log, gateway, dialer, supervisor, runtime.ClientConfig{
		Session: runtime.SessionConfig{
			HeartbeatInterval: config.HeartbeatInterval,
			CredentialRetry:   config.CredentialRetry,
			SlowChat:          config.SlowChat,
			EventDumpDir:      config.EventDumpDir,
			Inspector:         inspector,
		},
		AutoJoin:       config.AutoJoin,
		SinkTimeout:    config.SinkTimeout,
		EventBuffer:    config.EventBuffer,
		ReportInterval: config.ReportInterval,
	})
	client.Subscribe(sink.NewLogSink(log))
	if config.BotCommands {
		client.Subscribe(sink.NewCommandSink(client, log, config.Username, nil))
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	user, err := client.Login(ctx, api.LoginRequest{
		Username: config.Username,
		Password: config.Password,
		Code:     config.TwoFactorCode,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	for _, token := range config.ChannelTokens() {
		if _, err = client.JoinChannel(ctx, token); err != nil {
			log.Error("Unable to join channel", "channel", token, "error", err)
		}
	}
	log.Info("Bot running", "user", user.Username, "channels", len(client.Channels()))

	// 7. Run until stopped
	if err = client.Run(ctx); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

func buildInspector(config Config, log *slog.Logger) (*moderation.Inspector, error) {
	if config.DictionaryDir == "" {
		return moderation.NewInspector(nil, log), nil
	}
	dictionary, err := moderation.NewDictionaryLoader(os.DirFS(config.DictionaryDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("dictionary loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(dictionary.Words, config.CensoredChar(), log)
	if err != nil {
		return nil, fmt.Errorf("moderator: %w", err)
	}
	log.Info("Moderation enabled", "words", len(dictionary.Words), "languages", dictionary.Languages)
	return moderation.NewInspector(moderator, log), nil
}
