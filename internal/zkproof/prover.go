package zkproof

import (
	"context"
	"fmt"
)

// ProverContext is the execution context witness computation runs under.
// Proof generation is a blocking, potentially minutes-long CPU job; callers
// construct a context for the duration of the call and must not hold any
// lock shared with another in-flight proof for the same session. A failed
// or cancelled computation leaves no partial artifacts behind.
type ProverContext struct {
	ctx context.Context
}

func NewProverContext(ctx context.Context) *ProverContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ProverContext{ctx: ctx}
}

func (pc *ProverContext) Context() context.Context {
	if pc == nil || pc.ctx == nil {
		return context.Background()
	}
	return pc.ctx
}

// Err reports whether the context is still usable for a prove call.
func (pc *ProverContext) Err() error {
	if pc == nil {
		return fmt.Errorf("prover context not established")
	}
	if pc.ctx != nil {
		return pc.ctx.Err()
	}
	return nil
}
