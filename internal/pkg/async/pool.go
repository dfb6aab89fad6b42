// internal/pkg/async/pool.go
package async

import (
	"context"
	"fmt"
	"sync"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (interface{}, error)
}

type Result struct {
	Name string
	Data interface{}
	Err  error
}

type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan Task, results chan<- Result) {
	defer wg.Done()
	for {
		select {
		case task, ok := <-tasks:
			if !ok {
				return
			}
			results <- run(ctx, task)
		case <-ctx.Done():
			return
		}
	}
}

// run executes a task, turning a panic into an error result.
func run(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	result.Data, result.Err = task.Execute(ctx)
	return result
}

// Execute runs every task and returns the results keyed by task name. Tasks that
// did not run because ctx was cancelled are missing from the map.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	results, _ := p.execute(ctx, tasks, false)
	return results
}

// ExecuteAll runs the tasks and fails fast: the first task error cancels the
// remaining tasks and is returned wrapped with the task name.
func (p *Pool) ExecuteAll(ctx context.Context, tasks []Task) (map[string]Result, error) {
	return p.execute(ctx, tasks, true)
}

func (p *Pool) execute(parent context.Context, tasks []Task, failFast bool) (map[string]Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	taskCh := make(chan Task)
	// Buffered so workers never block on a collector that already returned.
	resultCh := make(chan Result, len(tasks))
	results := make(map[string]Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, taskCh, resultCh)
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
collect:
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-resultCh:
			results[result.Name] = result
			if failFast && result.Err != nil {
				firstErr = fmt.Errorf("error fetching %s: %w", result.Name, result.Err)
				cancel()
				break collect
			}
		case <-ctx.Done():
			if firstErr == nil && parent.Err() != nil {
				firstErr = parent.Err()
			}
			break collect
		}
	}

	wg.Wait()

	if failFast && firstErr == nil && len(results) < len(tasks) {
		firstErr = context.Canceled
	}
	return results, firstErr
}
