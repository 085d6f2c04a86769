// Package mocks provides hand-written test doubles for the server.
package mocks

import (
	"context"

	"github.com/localmind-ai/localmind/server/gemini"
)

// Verify at compile time that Generator implements gemini.Generator
var _ gemini.Generator = (*Generator)(nil)

// Generator implements gemini.Generator for tests without making actual
// API calls.
//
// Example usage:
//
//	gen := mocks.NewGenerator(func(ctx context.Context, req gemini.Request) (string, error) {
//	    return `{"response": "ok", "show_map": false, "locations": []}`, nil
//	})
type Generator struct {
	GenerateFunc func(context.Context, gemini.Request) (string, error)

	// Requests records every request passed to Generate, in order.
	Requests []gemini.Request
}

// NewGenerator creates a new Generator with an optional generate
// function. If generateFunc is nil, Generate returns an empty string
// with no error.
func NewGenerator(generateFunc func(context.Context, gemini.Request) (string, error)) *Generator {
	return &Generator{GenerateFunc: generateFunc}
}

// Generate implements gemini.Generator.
func (g *Generator) Generate(ctx context.Context, req gemini.Request) (string, error) {
	g.Requests = append(g.Requests, req)
	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, req)
	}
	return "", nil
}
