package compute

import (
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
)

// Executor запускает задачи вне потока-потребителя
type Executor interface {
	Go(task func())
	// Stop дожидается завершения запущенных задач
	Stop()
}

type goroutineExecutor struct {
	wg sync.WaitGroup
}

// NewGoroutineExecutor запускает каждую задачу в отдельной горутине, без ограничений
func NewGoroutineExecutor() Executor {
	return &goroutineExecutor{}
}

func (e *goroutineExecutor) Go(task func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		task()
	}()
}

func (e *goroutineExecutor) Stop() {
	e.wg.Wait()
}

type poolExecutor struct {
	pool pond.Pool
}

// NewPoolExecutor ограничивает число одновременно работающих задач.
// maxWorkers <= 0 означает runtime.NumCPU().
func NewPoolExecutor(maxWorkers int) Executor {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &poolExecutor{pool: pond.NewPool(maxWorkers)}
}

func (e *poolExecutor) Go(task func()) {
	e.pool.Submit(task)
}

func (e *poolExecutor) Stop() {
	e.pool.StopAndWait()
}

// ExecutorFor выбирает исполнитель по настройке max_workers:
// < 0: горутина на задачу, иначе пул (0 = по числу CPU).
func ExecutorFor(maxWorkers int) Executor {
	if maxWorkers < 0 {
		return NewGoroutineExecutor()
	}
	return NewPoolExecutor(maxWorkers)
}
