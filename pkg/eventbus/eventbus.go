package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is anything published on the bus.
type Event interface {
	Name() string
}

// Listener handles one event.
type Listener func(ctx context.Context, event Event) error

type subscription struct {
	id       uint64
	listener Listener
}

// Bus is a process-local pub/sub. Events published while nobody is subscribed are dropped.
type Bus struct {
	listeners map[string][]subscription
	nextID    uint64
	mu        sync.RWMutex
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]subscription),
		logger:    logger,
		timeout:   time.Minute,
	}
}

// Subscribe registers a listener and returns the func that removes it.
func (b *Bus) Subscribe(eventName string, listener Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[eventName] = append(b.listeners[eventName], subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventName, id) })
	}
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[eventName]
	for i, s := range subs {
		if s.id == id {
			b.listeners[eventName] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.listeners[eventName]) == 0 {
		delete(b.listeners, eventName)
	}
}

// Subscribers reports how many listeners are attached to eventName.
func (b *Bus) Subscribers(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[eventName])
}

// Publish fans the event out to every listener, each in its own goroutine.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	eventName := event.Name()
	subs := append([]subscription(nil), b.listeners[eventName]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			// Detached from the request context: the HTTP call may already be done.
			ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
			defer cancel()

			if err := l(ctxWithTimeout, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event", eventName),
					zap.Error(err),
				)
			}
		}(s.listener)
	}
}

// Wait blocks until every listener started by Publish has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
