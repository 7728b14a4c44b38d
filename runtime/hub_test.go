package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/mocks"
	"support-chat/observability"
)

// fakeConn records every delivered event. Safe for concurrent use so
// it can observe a hub running in its own goroutine.
type fakeConn struct {
	id          uuid.UUID
	participant domain.Participant

	mu     sync.Mutex
	events []event.Event
}

func newFakeConn(p domain.Participant) *fakeConn {
	return &fakeConn{id: uuid.New(), participant: p}
}

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) Participant() domain.Participant { return c.participant }

func (c *fakeConn) Deliver(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *fakeConn) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func (c *fakeConn) EventNames() []string {
	events := c.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name()
	}
	return names
}

func customer(id, name string) domain.Participant {
	return domain.Participant{ID: id, DisplayName: name, Role: domain.RoleCustomer}
}

func admin(id, name string) domain.Participant {
	return domain.Participant{ID: id, DisplayName: name, Role: domain.RoleAdmin}
}

func newTestHub(store *mocks.MockIMessageRepository) *Hub {
	return NewHub(slog.Default(), store, nil,
		observability.NewMetrics(prometheus.NewRegistry()), 16, 500)
}

func newMockStore(t *testing.T) *mocks.MockIMessageRepository {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return mocks.NewMockIMessageRepository(ctrl)
}

func TestHub_CustomerOnlineOffline(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(newMockStore(t))

	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: adminConn})

	customerConn := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: customerConn})
	hub.route(Deregister{ConnectionID: customerConn.ID()})

	req.Equal([]string{"presence_snapshot", "customer_online", "customer_offline"}, adminConn.EventNames())

	online := adminConn.Events()[1].(event.CustomerOnline)
	req.Equal("42", online.CustomerID)
	req.Equal("Alice", online.DisplayName)
	req.Equal("42", adminConn.Events()[2].(event.CustomerOffline).CustomerID)
	req.Empty(customerConn.Events(), "customers get nothing extra on join")
}

func TestHub_SecondTabDoesNotRebroadcastOnline(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(newMockStore(t))

	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: adminConn})

	tab1 := newFakeConn(customer("42", "Alice"))
	tab2 := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: tab1})
	hub.route(Register{Conn: tab2})
	hub.route(Deregister{ConnectionID: tab1.ID()})

	// One online event for the first tab, no offline while a tab is left.
	req.Equal([]string{"presence_snapshot", "customer_online"}, adminConn.EventNames())

	hub.route(Deregister{ConnectionID: tab2.ID()})
	req.Equal([]string{"presence_snapshot", "customer_online", "customer_offline"}, adminConn.EventNames())
}

func TestHub_AdminJoinGetsSnapshot(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(newMockStore(t))

	hub.route(Register{Conn: newFakeConn(customer("42", "Alice"))})
	hub.route(Register{Conn: newFakeConn(customer("7", "Bob"))})

	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: adminConn})

	req.Equal([]string{"presence_snapshot"}, adminConn.EventNames())
	snapshot := adminConn.Events()[0].(event.PresenceSnapshot)
	req.Len(snapshot.Customers, 2)
	req.Equal("42", snapshot.Customers[0].ParticipantID)
	req.Equal("7", snapshot.Customers[1].ParticipantID)
}

func TestHub_SendDeliversToAllRecipientTabsAndEchoesSender(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	store.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	adminTab1 := newFakeConn(admin("a1", "Op"))
	adminTab2 := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: customerConn})
	hub.route(Register{Conn: adminTab1})
	hub.route(Register{Conn: adminTab2})

	hub.route(SendMessage{Conn: customerConn, RecipientID: "a1", Body: "Hi"})

	for _, tab := range []*fakeConn{adminTab1, adminTab2} {
		events := tab.Events()
		req.Equal("new_message", events[len(events)-1].Name())
		delivered := events[len(events)-1].(event.NewMessage)
		req.Equal("Hi", delivered.Message.Body)
		req.Equal("42", delivered.Message.SenderID)
	}

	req.Equal([]string{"message_sent"}, customerConn.EventNames())
	echo := customerConn.Events()[0].(event.MessageSent)
	req.True(echo.Delivered)
	req.Equal("Hi", echo.Message.Body)
}

func TestHub_SendToOfflineRecipientStillPersists(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	store.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	hub := newTestHub(store)

	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: adminConn})

	hub.route(SendMessage{Conn: adminConn, RecipientID: "42", Body: "are you there?"})

	events := adminConn.Events()
	echo := events[len(events)-1].(event.MessageSent)
	req.False(echo.Delivered)
}

func TestHub_EmptyBodyRejectedWithoutStoreCall(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	// No StoreMessage expectation: any call fails the test.
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: customerConn})
	hub.route(SendMessage{Conn: customerConn, RecipientID: "a1", Body: "   "})

	req.Equal([]string{"message_error"}, customerConn.EventNames())
	req.Equal("InvalidMessage", customerConn.Events()[0].(event.MessageError).Reason)
}

func TestHub_OversizedBodyRejected(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(newMockStore(t))

	customerConn := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: customerConn})

	long := make([]byte, 0, 501)
	for i := 0; i < 501; i++ {
		long = append(long, 'x')
	}
	hub.route(SendMessage{Conn: customerConn, RecipientID: "a1", Body: string(long)})

	req.Equal([]string{"message_error"}, customerConn.EventNames())
}

func TestHub_SelfSendRejected(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(newMockStore(t))

	customerConn := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: customerConn})
	hub.route(SendMessage{Conn: customerConn, RecipientID: "42", Body: "hello me"})

	req.Equal([]string{"message_error"}, customerConn.EventNames())
}

// Persist-before-deliver: when the store errors, nobody receives the
// message and the sender gets an explicit persistence failure.
func TestHub_PersistFailureDeliversNothing(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	store.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("store down"))
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: customerConn})
	hub.route(Register{Conn: adminConn})

	hub.route(SendMessage{Conn: customerConn, RecipientID: "a1", Body: "Hi"})

	req.Equal([]string{"message_error"}, customerConn.EventNames())
	req.Equal("PersistenceFailure", customerConn.Events()[0].(event.MessageError).Reason)
	req.Equal([]string{"presence_snapshot", "customer_online"}, adminConn.EventNames(),
		"recipient must not see a message the store rejected")
}

func TestHub_EndSessionPurgesAndBroadcasts(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	store.EXPECT().DeleteMessages("42").Return(3, nil)
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	adminConn := newFakeConn(admin("a1", "Op"))
	otherAdmin := newFakeConn(admin("a2", "Op2"))
	hub.route(Register{Conn: customerConn})
	hub.route(Register{Conn: adminConn})
	hub.route(Register{Conn: otherAdmin})

	hub.route(SetTyping{Conn: customerConn, CounterpartID: "a1", IsTyping: true})
	hub.route(EndSession{Conn: adminConn, CustomerID: "42"})

	for _, conn := range []*fakeConn{customerConn, adminConn, otherAdmin} {
		events := conn.Events()
		last := events[len(events)-1]
		req.Equal("session_ended", last.Name())
		ended := last.(event.SessionEnded)
		req.Equal("42", ended.CustomerID)
		req.Equal(3, ended.DeletedCount)
	}
	req.Empty(hub.typing, "typing state cleared with the session")
}

func TestHub_EndSessionForbiddenForCustomers(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	// No DeleteMessages expectation: the store must stay untouched.
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	hub.route(Register{Conn: customerConn})
	hub.route(EndSession{Conn: customerConn, CustomerID: "42"})

	req.Equal([]string{"session_error"}, customerConn.EventNames())
	req.Equal("forbidden", customerConn.Events()[0].(event.SessionError).Reason)
}

func TestHub_EndSessionFailureReachesOnlyRequester(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	store.EXPECT().DeleteMessages("42").Return(0, fmt.Errorf("store down"))
	hub := newTestHub(store)

	customerConn := newFakeConn(customer("42", "Alice"))
	adminConn := newFakeConn(admin("a1", "Op"))
	hub.route(Register{Conn: customerConn})
	hub.route(Register{Conn: adminConn})
	hub.route(SetTyping{Conn: customerConn, CounterpartID: "a1", IsTyping: true})

	hub.route(EndSession{Conn: adminConn, CustomerID: "42"})

	events := adminConn.Events()
	req.Equal("session_error", events[len(events)-1].Name())
	req.Equal("PersistenceFailure", events[len(events)-1].(event.SessionError).Reason)
	for _, e := range customerConn.Events() {
		req.NotEqual("session_ended", e.Name(), "no broadcast after a failed purge")
	}
	req.Len(hub.typing, 1, "typing state untouched after a failed purge")
}

// Hub-routed operations are observed in submission order by every
// connected party: a message sent before an end-session shows up
// before the session_ended event, never after.
func TestHub_OrderingSendThenEndSession(t *testing.T) {
	req := require.New(t)
	store := newMockStore(t)
	gomock.InOrder(
		store.EXPECT().StoreMessage(gomock.Any()).Return(nil),
		store.EXPECT().DeleteMessages("42").Return(1, nil),
	)
	hub := newTestHub(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	customerConn := newFakeConn(customer("42", "Alice"))
	adminConn := newFakeConn(admin("a1", "Op"))
	req.NoError(hub.Enqueue(ctx, Register{Conn: customerConn}))
	req.NoError(hub.Enqueue(ctx, Register{Conn: adminConn}))

	req.NoError(hub.Enqueue(ctx, SendMessage{Conn: adminConn, RecipientID: "42", Body: "last words"}))
	req.NoError(hub.Enqueue(ctx, EndSession{Conn: adminConn, CustomerID: "42"}))

	require.Eventually(t, func() bool {
		names := customerConn.EventNames()
		return len(names) == 2
	}, time.Second, 5*time.Millisecond)

	req.Equal([]string{"new_message", "session_ended"}, customerConn.EventNames())

	cancel()
	<-done
}

func TestHub_EnqueueHonorsContext(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default(), newMockStore(t), nil,
		observability.NewMetrics(prometheus.NewRegistry()), 1, 500)

	ctx := context.Background()
	req.NoError(hub.Enqueue(ctx, Deregister{ConnectionID: uuid.New()}))

	// Queue full and nobody consuming: a canceled context unblocks.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := hub.Enqueue(canceled, Deregister{ConnectionID: uuid.New()})
	req.ErrorIs(err, context.Canceled)
}
