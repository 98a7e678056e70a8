package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBus шина в памяти процесса. Каждый подписчик получает события
// в порядке публикации из собственной очереди.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*memSubscriber
	nextID      int

	buffer   chan *Envelope
	capacity int
	done     chan struct{}
	closed   sync.Once

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

type memSubscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
// Очередь каждого подписчика имеет ту же ёмкость.
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 1
	}
	mb := &MemoryBus{
		subscribers: make(map[int]*memSubscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.done:
		return ErrBusClosed
	default:
	}

	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	default:
	}

	if ev.Priority < PriorityHigh {
		mb.dropped.Add(1)
		return nil
	}
	// Важные события ждут места в буфере
	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	select {
	case <-mb.done:
		return nil, ErrBusClosed
	default:
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &memSubscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, mb.capacity),
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	go mb.consume(sub)
	return &memSub{bus: mb, id: id}, nil
}

func (mb *MemoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.buffer),
	}
}

// Close останавливает рассылку и отписывает всех подписчиков
func (mb *MemoryBus) Close() error {
	mb.closed.Do(func() {
		close(mb.done)
		mb.mu.Lock()
		for id, sub := range mb.subscribers {
			sub.cancel()
			delete(mb.subscribers, id)
		}
		mb.mu.Unlock()
	})
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков
func (mb *MemoryBus) dispatchLoop() {
	for {
		select {
		case <-mb.done:
			return
		case ev := <-mb.buffer:
			mb.mu.RLock()
			subs := make([]*memSubscriber, 0, len(mb.subscribers))
			for _, sub := range mb.subscribers {
				if matchFilter(ev, sub.filter) {
					subs = append(subs, sub)
				}
			}
			mb.mu.RUnlock()

			for _, sub := range subs {
				mb.deliver(sub, ev)
			}
		}
	}
}

func (mb *MemoryBus) deliver(sub *memSubscriber, ev *Envelope) {
	select {
	case sub.queue <- ev:
		return
	default:
	}

	if ev.Priority < PriorityHigh {
		mb.dropped.Add(1)
		return
	}
	select {
	case sub.queue <- ev:
	case <-sub.ctx.Done():
	case <-mb.done:
	}
}

// consume вызывает обработчик строго по одному событию за раз
func (mb *MemoryBus) consume(sub *memSubscriber) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev := <-sub.queue:
			if sub.ctx.Err() != nil {
				return
			}
			sub.handler(sub.ctx, ev)
			mb.consumed.Add(1)
		}
	}
}

type memSub struct {
	bus  *MemoryBus
	id   int
	once sync.Once
}

func (s *memSub) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if sub, ok := s.bus.subscribers[s.id]; ok {
			sub.cancel()
			delete(s.bus.subscribers, s.id)
		}
		s.bus.mu.Unlock()
	})
}
