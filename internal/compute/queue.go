// Package compute выполняет тяжёлые вычисления вне потока-потребителя и
// возвращает результаты через буфер, который потребитель опустошает сам.
package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/endless-terrain/internal/logging"
)

// ErrQueueClosed возвращается задачам, поставленным после Close
var ErrQueueClosed = errors.New("compute queue closed")

// Queue: очередь асинхронных вычислений.
//
// Задачи выполняются исполнителем (Executor), а готовые обратные вызовы
// складываются в буфер. Обратные вызовы выполняются только внутри Drain,
// то есть в потоке, который вызывает Drain.
type Queue struct {
	ctx     context.Context
	exec    Executor
	metrics *Metrics
	logger  *logging.Logger
	tracer  trace.Tracer

	mu        sync.Mutex
	completed []func()

	pending atomic.Int64
	closed  atomic.Bool
}

// Option настраивает Queue
type Option func(*Queue)

// WithExecutor задаёт исполнитель задач
func WithExecutor(e Executor) Option {
	return func(q *Queue) { q.exec = e }
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithLogger задаёт логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithContext задаёт родительский контекст задач
func WithContext(ctx context.Context) Option {
	return func(q *Queue) { q.ctx = ctx }
}

// NewQueue создаёт очередь. По умолчанию используется пул размером NumCPU.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{ctx: context.Background()}
	for _, opt := range opts {
		opt(q)
	}
	if q.exec == nil {
		q.exec = NewPoolExecutor(0)
	}
	q.logger = logging.OrDefault(q.logger)
	q.tracer = otel.Tracer("github.com/annel0/endless-terrain/internal/compute")
	return q
}

// Submit ставит задачу fn; onResult будет вызван из Drain с её результатом.
// Ошибки и паники задачи логируются, onResult в этом случае не вызывается.
func Submit[T any](q *Queue, name string, fn func(ctx context.Context) (T, error), onResult func(T)) uuid.UUID {
	return SubmitWithError(q, name, fn, onResult, nil)
}

// SubmitWithError как Submit, но ошибка задачи доставляется в onError через Drain
func SubmitWithError[T any](q *Queue, name string, fn func(ctx context.Context) (T, error), onResult func(T), onError func(error)) uuid.UUID {
	id := uuid.New()
	q.pending.Add(1)
	q.metrics.onSubmit(name)

	if q.closed.Load() {
		q.fail(id, name, ErrQueueClosed, onError)
		return id
	}

	q.exec.Go(func() {
		result, err := runTask(q, id, name, fn)
		if err != nil {
			q.fail(id, name, err, onError)
			return
		}
		q.push(func() {
			if onResult != nil {
				onResult(result)
			}
		})
	})
	return id
}

func runTask[T any](q *Queue, id uuid.UUID, name string, fn func(ctx context.Context) (T, error)) (result T, err error) {
	ctx, span := q.tracer.Start(q.ctx, "compute."+name,
		trace.WithAttributes(attribute.String("task.id", id.String())))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		q.metrics.onFinish(name, time.Since(start), err)
	}()

	return fn(ctx)
}

func (q *Queue) fail(id uuid.UUID, name string, err error, onError func(error)) {
	q.logger.Warn("⚠️ Задача %s (%s) завершилась ошибкой: %v", name, id, err)
	if onError == nil {
		q.done()
		return
	}
	q.push(func() { onError(err) })
}

func (q *Queue) push(cb func()) {
	q.mu.Lock()
	q.completed = append(q.completed, cb)
	q.mu.Unlock()
}

func (q *Queue) done() {
	q.pending.Add(-1)
	q.metrics.onDone()
}

// Drain выполняет все обратные вызовы, накопленные к моменту вызова, в
// порядке завершения задач. Вызовы, появившиеся во время Drain, остаются
// до следующего раза. Возвращает число выполненных вызовов.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.completed
	q.completed = nil
	q.mu.Unlock()

	for _, cb := range batch {
		cb()
		q.done()
	}
	return len(batch)
}

// Pending: число задач, чей обратный вызов ещё не выполнен
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Buffered: число готовых, но ещё не выполненных обратных вызовов
func (q *Queue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.completed)
}

// Close перестаёт принимать задачи и дожидается запущенных.
// Буфер после Close можно опустошить обычным Drain.
func (q *Queue) Close() {
	if q.closed.Swap(true) {
		return
	}
	q.exec.Stop()
}
