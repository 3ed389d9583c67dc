//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"echoes/domain"
	"reflect"
	"time"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

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
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IGateway is the boundary over the message store.
// Every call is a request/response snapshot; nothing is transactional across calls.
type IGateway interface {
	CreateEcho(ctx context.Context, cmd domain.PostEchoCommand) (domain.Echo, error)
	CreateReply(ctx context.Context, cmd domain.ReplyCommand) (domain.Reply, error)
	// ListLiveEchoes returns echoes created strictly after domain.Cutoff(now), newest first,
	// each with its replies in insertion order.
	ListLiveEchoes(ctx context.Context, now time.Time) ([]domain.Echo, error)
	// ListNotifications returns replies on echoes authored by signature, newest first,
	// at most limit of them. A limit <= 0 means no cap.
	ListNotifications(ctx context.Context, signature domain.SignatureID, limit int) ([]domain.Notification, error)
	// MarkRead is idempotent; unknown or already read ids are ignored.
	MarkRead(ctx context.Context, replyIDs []uuid.UUID) error
}

// IKeyValueStore is the durable device-local storage.
type IKeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type ISignatureProvider interface {
	Get(ctx context.Context) (domain.SignatureID, error)
}
