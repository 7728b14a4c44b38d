package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"support-chat/domain"
	"support-chat/domain/event"
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
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one live transport session for a participant. The hub only
// ever talks to connections through this interface; the websocket
// client implements it, tests use in-memory fakes.
//
// Deliver must never block the caller: a slow consumer is the
// connection's problem, not the hub's.
type Conn interface {
	ID() uuid.UUID
	Participant() domain.Participant
	Deliver(e event.Event)
}
