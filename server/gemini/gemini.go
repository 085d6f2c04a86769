// Package gemini wraps the Google Gemini API for the analyze pipeline.
// It sends a rendered prompt plus any attached media to the model,
// requesting native JSON output and Google Search grounding, and hands
// back the raw response text.
package gemini

import (
	"context"
)

// Media is one attached payload (image or audio) forwarded to the model.
type Media struct {
	// MIMEType identifies the payload (e.g. "image/jpeg", "audio/mp4")
	MIMEType string

	// Data is the raw file content
	Data []byte
}

// Request carries everything a single generation call needs.
type Request struct {
	// Prompt is the fully rendered instruction text
	Prompt string

	// Media holds optional image/audio attachments, in the order they
	// should appear after the prompt
	Media []Media
}

// Generator is the minimal surface the processing pipeline needs from a
// generative model. The single production implementation is Client;
// tests substitute their own.
type Generator interface {
	// Generate performs one blocking model call and returns the raw
	// response text. Errors propagate unchanged to the caller.
	Generate(ctx context.Context, req Request) (string, error)
}
