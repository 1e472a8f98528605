// Package async provides a bounded fan-out/join worker pool. Each task's
// outcome (value or error) lands in its own named result slot; Execute joins
// once every slot is filled, so one failing task never cancels its siblings.
package async

import (
	"context"
	"sync"
)

type Task struct {
	Name string
	Run  func() (any, error)
}

type Result struct {
	Name string
	Data any
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

// Execute runs all tasks on the pool's workers and blocks until every task
// has settled or ctx is done. The returned map holds one Result per settled
// task, keyed by task name; on early cancellation it may be partial.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var wg sync.WaitGroup
	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case task, ok := <-taskCh:
					if !ok {
						return
					}
					data, err := task.Run()
					resultCh <- Result{Name: task.Name, Data: data, Err: err}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				// Workers exit through ctx as well; leave the channel open.
				return
			}
		}
		close(taskCh)
	}()

	results := make(map[string]Result, len(tasks))
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-resultCh:
			results[result.Name] = result
		case <-ctx.Done():
			wg.Wait()
			// Drain whatever settled before cancellation
			close(resultCh)
			for result := range resultCh {
				results[result.Name] = result
			}
			return results
		}
	}

	wg.Wait()
	return results
}
