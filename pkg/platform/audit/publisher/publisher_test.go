package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	id "credledger/pkg/domain"
	audit "credledger/pkg/platform/audit"
)

const actor = id.Address("0x1111111111111111111111111111111111111111")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

func (s *failingStore) ListByActor(_ context.Context, _ id.Address) ([]audit.Event, error) {
	return nil, nil
}

func (s *failingStore) ListBySubject(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	pub := NewPublisher(audit.NewInMemoryStore())

	err := pub.Emit(context.Background(), audit.Event{
		Actor:   actor,
		Subject: "7",
		Action:  string(audit.EventCredentialIssued),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), id.Address("0X1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCredentialIssued), events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	pub := NewPublisher(audit.NewInMemoryStore())

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventCredentialRevoked)}))
	after := time.Now()

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.False(t, events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	pub := NewPublisher(audit.NewInMemoryStore())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Actor:     actor,
		Action:    string(audit.EventCredentialIssued),
		Timestamp: customTime,
	}))

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitReturnsError(t *testing.T) {
	storeErr := errors.New("append failed")
	pub := NewPublisher(&failingStore{err: storeErr})

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventCredentialIssued)})
	require.ErrorIs(t, err, storeErr)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := audit.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))

	for _, action := range []audit.AuditEvent{audit.EventCredentialIssued, audit.EventCredentialRevoked} {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: string(action)}))
	}
	pub.Close()

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventCredentialRevoked), events[1].Action)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(audit.NewInMemoryStore(), WithAsyncBuffer(1))

	pub.Close()
	pub.Close()
}

// blockingStore holds Append until release is closed.
type blockingStore struct {
	audit.InMemoryStore
	release chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, e audit.Event) error {
	<-s.release
	return s.InMemoryStore.Append(ctx, e)
}

func TestPublisher_FullBufferDropsEvent(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	emit := func() error {
		return pub.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventCredentialIssued)})
	}
	// The writer takes the first event and blocks; the second fills the queue.
	require.NoError(t, emit())
	require.Eventually(t, func() bool { return len(pub.events) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, emit())

	err := emit()

	assert.Error(t, err)
	assert.Equal(t, int64(1), pub.Dropped())
	close(store.release)
	pub.Close()
}

func TestPublisher_HistoryAndCategory(t *testing.T) {
	pub := NewPublisher(audit.NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, audit.Event{Actor: actor, Subject: "7", Action: string(audit.EventCredentialIssued)}))
	require.NoError(t, pub.Emit(ctx, audit.Event{Actor: actor, Subject: "8", Action: string(audit.EventCredentialIssued)}))
	require.NoError(t, pub.Emit(ctx, audit.Event{Actor: actor, Subject: "7", Action: string(audit.EventRevokeFailed)}))

	history, err := pub.History(ctx, "7")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, audit.CategoryCompliance, history[0].Category)
	assert.Equal(t, audit.CategorySecurity, history[1].Category)
}
