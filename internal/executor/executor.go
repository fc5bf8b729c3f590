// Package executor runs generated candidates to get ground-truth feedback
// for the debug refiner.
package executor

import "context"

// Executor runs a candidate. A nil error means the candidate worked.
type Executor interface {
	Execute(ctx context.Context, candidate string) error
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, candidate string) error

// Execute calls f.
func (f Func) Execute(ctx context.Context, candidate string) error {
	return f(ctx, candidate)
}
