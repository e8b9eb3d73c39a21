package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// Thinker runs one move search at a time on a background goroutine so the
// caller's loop stays responsive. The search works on a cloned board.
type Thinker struct {
	engine     *Engine
	moveMutex  sync.Mutex
	workerDone chan struct{}
	cancel     context.CancelFunc
	thinking   atomic.Bool
	moveReady  atomic.Bool
	readyMove  Result
	readyErr   error
}

func NewThinker(engine *Engine) *Thinker {
	if engine == nil {
		engine = defaultEngine
	}
	return &Thinker{engine: engine}
}

// StartThinking launches a search and returns false if one is already
// running. The result is collected with TakeMove once HasMoveReady is true.
func (t *Thinker) StartThinking(ctx context.Context, req Request) bool {
	if !t.thinking.CompareAndSwap(false, true) {
		return false
	}
	if prev := t.Done(); prev != nil {
		<-prev
	}
	t.moveReady.Store(false)

	reqCopy := req
	reqCopy.Board = req.Board.Clone()
	if req.LastMove != nil {
		last := *req.LastMove
		reqCopy.LastMove = &last
	}
	searchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.moveMutex.Lock()
	t.workerDone = done
	t.cancel = cancel
	t.moveMutex.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		result, err := t.engine.ChooseMove(searchCtx, reqCopy)
		t.moveMutex.Lock()
		t.readyMove = result
		t.readyErr = err
		t.moveMutex.Unlock()
		t.moveReady.Store(true)
		t.thinking.Store(false)
	}()
	return true
}

func (t *Thinker) IsThinking() bool {
	return t.thinking.Load()
}

func (t *Thinker) HasMoveReady() bool {
	return t.moveReady.Load()
}

func (t *Thinker) TakeMove() (Result, error) {
	t.moveMutex.Lock()
	defer t.moveMutex.Unlock()
	t.moveReady.Store(false)
	return t.readyMove, t.readyErr
}

// Done is closed when the current search finishes. It is nil before the
// first StartThinking.
func (t *Thinker) Done() <-chan struct{} {
	t.moveMutex.Lock()
	defer t.moveMutex.Unlock()
	return t.workerDone
}

// Stop cancels the running search, waits for it and drops its result.
func (t *Thinker) Stop() {
	t.moveMutex.Lock()
	cancel := t.cancel
	done := t.workerDone
	t.moveMutex.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	t.moveReady.Store(false)
}
