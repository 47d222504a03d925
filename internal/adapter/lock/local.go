package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker serializes writers of one event inside a single process. Each
// event gets a one-slot channel, so waiting honors ctx cancellation.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[uuid.UUID]chan struct{}{}}
}

func (l *LocalLocker) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	slot := l.slot(eventID)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once

	return func() {
		once.Do(func() { <-slot })
	}, nil
}

func (l *LocalLocker) slot(eventID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[eventID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[eventID] = s
	}

	return s
}
