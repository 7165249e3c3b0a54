package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	dErrors "credledger/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Rejected  int32 // write_rejected: the ledger refused the write
	TimedOut  int32 // confirmation_timed_out
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Rejected + r.TimedOut + r.Errors
}

// RunConcurrent executes fn in parallel goroutines and collects results by
// domain error code.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, rejected, timedOut, errs atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeWriteRejected):
				rejected.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConfirmationTimedOut):
				timedOut.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Rejected:  rejected.Load(),
		TimedOut:  timedOut.Load(),
		Errors:    errs.Load(),
	}
}

// RunConcurrentCtx executes fn in parallel goroutines with context support.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}
