// Package assist talks to the generative model behind receipt scanning and
// spending advice. Callers depend on the request and response shapes here,
// never on a provider's wire format.
package assist

import "context"

// Request is one model call. File is optional; JSON asks the model for a
// JSON document instead of prose.
type Request struct {
	Prompt string
	File   *ReceiptFile
	JSON   bool
}

// Model generates text for a request.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (string, error)

func (f ModelFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
