// Package renamepipeline implements the parallel rename pipeline (C4): a
// bounded-concurrency file-rename executor with a cooperative cancel flag
// and join/join-suppress primitives, generalized from the shared-WaitGroup
// batch pattern the teacher used for bulk service operations, plus the
// cancel-flag idiom of a long-running worker loop.
package renamepipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cuemby/metacoord/pkg/fs"
	"github.com/cuemby/metacoord/pkg/metrics"
	"github.com/cuemby/metacoord/pkg/types"
)

// RenameError reports a failed rename, carrying the file pair that failed.
type RenameError struct {
	Src, Dst string
	Err      error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }

// Handle is a submitted rename task's completion handle. It is retained by
// the caller (the Committer) so cancellation can be observed and joining
// can complete deterministically.
type Handle struct {
	src, dst string
	done     chan error
}

// Pipeline executes file renames across a bounded pool of goroutines. Tasks
// observe a shared cancel flag at their next scheduling point; once set, no
// further renames are attempted and handles resolve immediately.
type Pipeline struct {
	fs          fs.Fs
	concurrency int
	sem         chan struct{}
	cancelled   atomic.Bool
}

// New creates a Pipeline over f with the given bound on concurrent renames.
// A non-positive concurrency is treated as 1.
func New(f fs.Fs, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		fs:          f,
		concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
	}
}

// Cancel sets the cooperative cancel flag. Tasks already running are not
// interrupted; they observe the flag the next time they check it (before
// doing any filesystem work).
func (p *Pipeline) Cancel() {
	p.cancelled.Store(true)
}

// Submit launches one rename task for (src, dst) and returns immediately
// with a Handle. The task itself runs on a pool-bounded goroutine.
func (p *Pipeline) Submit(ctx context.Context, creds types.OpContext, src, dst string) *Handle {
	h := &Handle{src: src, dst: dst, done: make(chan error, 1)}
	go func() {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if p.cancelled.Load() {
			metrics.RenamesCancelled.Inc()
			h.done <- nil
			return
		}

		metrics.RenamesSubmitted.Inc()
		exists, err := p.fs.Exists(ctx, creds, dst)
		if err != nil {
			metrics.RenamesFailed.Inc()
			h.done <- &RenameError{Src: src, Dst: dst, Err: err}
			return
		}
		if exists {
			metrics.RenamesFailed.Inc()
			h.done <- &RenameError{Src: src, Dst: dst, Err: fmt.Errorf("target already exists")}
			return
		}
		ok, err := p.fs.Rename(ctx, creds, src, dst)
		if err != nil {
			metrics.RenamesFailed.Inc()
			h.done <- &RenameError{Src: src, Dst: dst, Err: err}
			return
		}
		if !ok {
			metrics.RenamesFailed.Inc()
			h.done <- &RenameError{Src: src, Dst: dst, Err: fmt.Errorf("rename reported failure")}
			return
		}
		h.done <- nil
	}()
	return h
}

// JoinAllPropagate waits for every handle to complete and returns the first
// non-nil error observed, in handle-list order. Every handle is waited on
// regardless of earlier failures, so no goroutine is left running past the
// call.
func JoinAllPropagate(handles []*Handle) error {
	errs := make([]error, len(handles))
	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		go func(i int, h *Handle) {
			defer wg.Done()
			errs[i] = <-h.done
		}(i, h)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// JoinAllQuiet waits for every handle to complete, discarding all errors.
// Used on the rollback path after Cancel, where renames must quiesce
// before filesystem cleanup runs, but individual rename failures are
// irrelevant: the files in question are about to be deleted anyway.
func JoinAllQuiet(handles []*Handle) {
	var wg sync.WaitGroup
	wg.Add(len(handles))
	for _, h := range handles {
		go func(h *Handle) {
			defer wg.Done()
			<-h.done
		}(h)
	}
	wg.Wait()
}
