// Package render defines the document rendering collaborator (certificate
// PDFs, export spreadsheets). The real engine lives outside this repository.
package render

import "context"

// Context is the key/value payload a template is populated with.
type Context map[string]string

// Renderer produces document bytes from a named template and its context.
type Renderer interface {
	Render(ctx context.Context, template string, data Context) ([]byte, error)
}

// Func adapts a function to the Renderer interface. Handy for test stubs.
type Func func(ctx context.Context, template string, data Context) ([]byte, error)

func (f Func) Render(ctx context.Context, template string, data Context) ([]byte, error) {
	return f(ctx, template, data)
}
