package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) Name() string { return e.name }

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := New(zap.NewNop())
	var calls int32

	bus.Subscribe("a", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	bus.Subscribe("a", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("listener failure is only logged")
	})
	bus.Subscribe("b", func(ctx context.Context, event Event) error {
		t.Errorf("listener for another event must not run")
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "a"})
	bus.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(zap.NewNop())
	var calls int32

	unsubscribe := bus.Subscribe("a", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.Equal(t, 1, bus.Subscribers("a"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.Subscribers("a"))

	bus.Publish(context.Background(), testEvent{name: "a"})
	bus.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestBus_ListenerOutlivesCancelledContext(t *testing.T) {
	bus := New(zap.NewNop())
	var sawCancelled atomic.Bool

	bus.Subscribe("a", func(ctx context.Context, event Event) error {
		sawCancelled.Store(ctx.Err() != nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{name: "a"})
	bus.Wait()

	assert.False(t, sawCancelled.Load())
}
