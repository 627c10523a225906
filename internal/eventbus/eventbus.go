// Package eventbus: внутрипроцессная шина событий жизненного цикла чанков.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("event bus closed")

// Envelope описывает универсальный контейнер события
type Envelope struct {
	ID        string            // UUID события
	Timestamp time.Time         // Время создания (UTC)
	Source    string            // Компонент-источник
	EventType string            // Тип события (chunk.created, chunk.ready…)
	Version   int               // Версия схемы полезной нагрузки
	Priority  int               // 0=Low … 9=Critical
	Payload   []byte            // JSON полезной нагрузки
	Metadata  map[string]string // Произвольные метаданные
}

// NewEnvelope сериализует payload в JSON и заполняет служебные поля
func NewEnvelope(source, eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку события в v
func (e *Envelope) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// Filter позволяет подписаться только на нужные события
type Filter struct {
	Types   []string // Если пусто: все типы
	Sources []string // Если пусто: все источники
}

// Subscription возвращается при подписке; позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close()
}

//================ In-Memory implementation =================//

type memoryBus struct {
	mu          sync.RWMutex // подписчики
	subscribers map[int]subscriber
	nextID      int

	statsMu sync.Mutex
	stats   Stats

	closeMu sync.RWMutex // Publish держит на чтение, Close на запись
	closed  bool

	buffer chan *Envelope
	wg     sync.WaitGroup // опубликованные, но не разосланные события
	done   chan struct{}
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory шину с указанным буфером.
// Подписчики вызываются последовательно в порядке публикации.
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 1
	}
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}

	mb.wg.Add(1)
	select {
	case mb.buffer <- ev:
		mb.addStats(func(s *Stats) { s.Published++ })
		return nil
	default:
	}

	// Буфер заполнен: низкий приоритет (<5) отбрасываем
	if ev.Priority < 5 {
		mb.wg.Done()
		mb.addStats(func(s *Stats) { s.Dropped++ })
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.addStats(func(s *Stats) { s.Published++ })
		return nil
	case <-ctx.Done():
		mb.wg.Done()
		return ctx.Err()
	}
}

func (mb *memoryBus) addStats(f func(*Stats)) {
	mb.statsMu.Lock()
	f(&mb.stats)
	mb.statsMu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.statsMu.Lock()
	s := mb.stats
	mb.statsMu.Unlock()
	s.InFlight = len(mb.buffer)
	return s
}

// Close дожидается доставки уже опубликованных событий и останавливает рассылку
func (mb *memoryBus) Close() {
	mb.closeMu.Lock()
	if mb.closed {
		mb.closeMu.Unlock()
		return
	}
	mb.closed = true
	mb.closeMu.Unlock()

	mb.wg.Wait()
	close(mb.buffer)
	<-mb.done
}

// Flush ждёт, пока все опубликованные события будут разосланы
func Flush(bus EventBus) {
	if mb, ok := bus.(*memoryBus); ok {
		mb.wg.Wait()
	}
}

// dispatchLoop рассылает события подписчикам
func (mb *memoryBus) dispatchLoop() {
	defer close(mb.done)
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			if !matchFilter(ev, sub.filter) {
				continue
			}
			select {
			case <-sub.ctx.Done():
				continue
			default:
			}
			sub.handler(sub.ctx, ev)
			mb.addStats(func(s *Stats) { s.Consumed++ })
		}
		mb.wg.Done()
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
