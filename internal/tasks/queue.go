// Package tasks содержит очередь фоновых задач, выполняемых вне цикла запрос-ответ.
package tasks

import (
	"context"
	"fmt"
	"sync"
)

// Task — единица фоновой работы.
// Kind — тип задачи с ограниченным набором значений, Name — её конкретный экземпляр.
type Task struct {
	Kind string
	Name string
	Run  func(ctx context.Context) error
}

// TaskError описывает неудачное выполнение задачи.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Queue — буферизованная очередь задач с собственным каналом ошибок.
type Queue struct {
	tasks   chan Task
	errs    chan error
	workers int

	mu     sync.RWMutex
	closed bool
}

// NewQueue создаёт очередь с указанным размером буфера и числом обработчиков.
func NewQueue(size, workers int) *Queue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		tasks:   make(chan Task, size),
		errs:    make(chan error, size),
		workers: workers,
	}
}

// Enqueue ставит задачу в очередь без блокировки.
// Возвращает false, если буфер заполнен или очередь остановлена.
func (q *Queue) Enqueue(t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.tasks <- t:
		return true
	default:
		return false
	}
}

// Errors возвращает канал ошибок задач. Если его никто не читает, ошибки отбрасываются.
func (q *Queue) Errors() <-chan error {
	return q.errs
}

// Run запускает обработчики и блокируется до отмены ctx.
// После возврата очередь не принимает новых задач, канал ошибок закрыт.
func (q *Queue) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}

	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	wg.Wait()
	close(q.errs)
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.execute(ctx, t)
		}
	}
}

func (q *Queue) execute(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			q.report(&TaskError{Name: t.Name, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if err := t.Run(ctx); err != nil {
		q.report(&TaskError{Name: t.Name, Err: err})
	}
}

func (q *Queue) report(err error) {
	select {
	case q.errs <- err:
	default:
	}
}
