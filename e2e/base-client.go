package e2e

import (
	"beam-chat/api"
	"beam-chat/domain/event"
	"beam-chat/repositories"
	"beam-chat/runtime"
	"beam-chat/runtime/workers"
	"beam-chat/transport"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseClientSuite runs scenarios against the live chat service.
// Every test is skipped when no account is configured.
type BaseClientSuite struct {
	suite.Suite
	Config Config
	Client *runtime.Client
	Events chan event.DomainEvent

	db     *badger.DB
	cancel context.CancelFunc
	done   chan struct{}
}

type channelSink chan event.DomainEvent

func (c channelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case c <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetupSuite loads the environment configuration and starts a client
func (s *BaseClientSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.Username == "" || s.Config.Password == "" {
		s.T().Skip("BEAM_USERNAME and BEAM_PASSWORD are required for e2e scenarios")
	}

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s.db, err = badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLogger(nil))
	s.Require().NoError(err)

	jar, err := api.NewJarStore(log, repositories.NewCredentialRepository(s.db), s.Config.Username, s.Config.BaseURL)
	s.Require().NoError(err)
	gateway, err := api.NewHTTPGateway(log, s.Config.BaseURL, jar, api.DefaultTimeout)
	s.Require().NoError(err)

	s.Events = make(chan event.DomainEvent, 1024)
	s.Client = runtime.NewClient(log, gateway, transport.NewDialer(log, api.DefaultUserAgent),
		workers.NewSupervisor(log), runtime.ClientConfig{})
	s.Client.Subscribe(channelSink(s.Events))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = s.Client.Run(ctx)
	}()
}

func (s *BaseClientSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Step prints a colorized header then runs fn with a context bounded by E2E_TIMEOUT
func (s *BaseClientSuite) Step(name string, fn func(ctx context.Context)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()
	fn(ctx)
	s.T().Logf("%s done in %v", name, time.Since(start))
}

// Await returns the first notification of type T, logging the others.
func Await[T event.DomainEvent](s *BaseClientSuite, ctx context.Context) T {
	for {
		select {
		case e := <-s.Events:
			if evt, ok := e.(T); ok {
				return evt
			}
			s.T().Logf("skipped %T", e)
		case <-ctx.Done():
			var zero T
			s.FailNow(fmt.Sprintf("no %T received", zero))
			return zero
		}
	}
}
