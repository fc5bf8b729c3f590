// Package examples supplies few-shot examples to the prompt builder.
package examples

import (
	"context"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Query describes which examples a caller wants.
type Query struct {
	Intent          prompt.Intent
	Complexity      prompt.Complexity
	K               int
	RequireExpected bool
	Text            string
}

// Retriever returns a bounded list of similar past examples.
// Failures are reported as RETRIEVAL_FAILED errors.
type Retriever interface {
	FindExamples(ctx context.Context, q Query) ([]prompt.FewShotExample, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, q Query) ([]prompt.FewShotExample, error)

// FindExamples calls f.
func (f RetrieverFunc) FindExamples(ctx context.Context, q Query) ([]prompt.FewShotExample, error) {
	return f(ctx, q)
}

// Nop is a Retriever that never has examples.
type Nop struct{}

// FindExamples returns no examples.
func (Nop) FindExamples(context.Context, Query) ([]prompt.FewShotExample, error) {
	return nil, nil
}
