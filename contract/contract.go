//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"beam-chat/domain/event"
	"context"
	"net/http"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives session notifications.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Response is what the REST control plane answered.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Gateway issues authenticated calls to the REST control plane.
// Payload is sent as query string for GET and as a JSON body otherwise.
type Gateway interface {
	Request(ctx context.Context, method, endpoint string, payload any) (Response, error)
}

// Conn is one message-oriented duplex transport connection.
// A single goroutine reads and a single goroutine writes.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Replier answers a received chat message in the channel it came from.
type Replier interface {
	Reply(ctx context.Context, msg event.MessageReceived, parts ...string) error
}
