package library

import "sync"

// Observable holds a value that readers can poll or subscribe to.
// Subscribers run synchronously on the goroutine that calls Set.
type Observable[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	next  int
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: make(map[int]func(T))}
}

func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	subs := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn for future values and returns a func that removes it.
func (o *Observable[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}
