package compress

import (
	"context"
)

// Future is a handle for a compression task submitted to a Pool.
type Future struct {
	done_ch chan struct{}
	body    []byte
	err     error
}

// Wait blocks until the task completes or ctx is done, returning the
// compressed body or the task's error.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done_ch:
		return f.body, f.err
	}
}

type task struct {
	ctx    context.Context
	name   string
	body   []byte
	future *Future
}

// Pool runs compression tasks on a fixed set of background workers. The
// batch orchestrator uses a pool of one worker, mirroring the single
// in-flight codec task the rest of the pipeline is sized for.
type Pool struct {
	task_ch chan *task
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int) *Pool {

	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		task_ch: make(chan *task),
	}

	for i := 0; i < workers; i++ {

		go func() {

			for t := range p.task_ch {
				t.future.body, t.future.err = CompressImage(t.ctx, t.name, t.body)
				close(t.future.done_ch)
			}
		}()
	}

	return p
}

// Submit hands body to a worker for compression and returns a Future for
// the result. Submit blocks until a worker accepts the task or ctx is done,
// so once it returns the task is owned by a worker and Close is safe to
// call. Submit must not be called after Close.
func (p *Pool) Submit(ctx context.Context, name string, body []byte) *Future {

	f := &Future{
		done_ch: make(chan struct{}),
	}

	t := &task{
		ctx:    ctx,
		name:   name,
		body:   body,
		future: f,
	}

	select {
	case p.task_ch <- t:
		// pass
	case <-ctx.Done():
		f.err = ctx.Err()
		close(f.done_ch)
	}

	return f
}

// Close stops the pool's workers once accepted tasks have drained.
func (p *Pool) Close() {
	close(p.task_ch)
}
