//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pulsechat/domain"
	"pulsechat/domain/event"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives realtime events. Implementations must tolerate being
// called from the channel read pumps.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// SocketConn is one established bidirectional connection. Close is explicit
// and idempotent; it is never left to garbage collection.
type SocketConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// SocketDialer opens SocketConns. Abstracted so channels can be exercised
// without a network.
type SocketDialer interface {
	DialContext(ctx context.Context, url string) (SocketConn, error)
}

// IChatAPI is the REST surface of the platform used by this client.
type IChatAPI interface {
	StartSession(ctx context.Context, tenantID string) (domain.Session, error)
	Messages(ctx context.Context, sessionID string) ([]domain.Message, error)
	Sessions(ctx context.Context) ([]domain.Session, error)
}

// IHistoryCache persists merged feeds locally so a reopened conversation
// renders before the network answers.
type IHistoryCache interface {
	Store(sessionID string, messages []domain.Message) error
	Load(sessionID string) ([]domain.Message, error)
}
