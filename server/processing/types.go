// Package processing turns one analyze request into a normalized result:
// it renders the instruction prompt, calls the model, and normalizes the
// model's text output into the documented JSON shape.
package processing

import (
	"github.com/localmind-ai/localmind/server/gemini"
)

// Request carries one analyze request through the pipeline. It lives for
// exactly one HTTP request; nothing is cached or shared.
type Request struct {
	// Text is the user's free text; empty when only media was supplied
	Text string

	// Location is the free-form location hint ("lat,long" or a place
	// name); empty when absent
	Location string

	// LanguageCode is the preferred response language (default "en")
	LanguageCode string

	// Media holds decoded image/audio attachments
	Media []gemini.Media
}

// Location is a place extracted by the model.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// modelOutput is the JSON shape the model is instructed to emit.
// Missing keys decode to their zero values, which are exactly the
// documented defaults.
type modelOutput struct {
	Response  string     `json:"response"`
	ShowMap   bool       `json:"show_map"`
	Locations []Location `json:"locations"`
}

// Result is the normalized artifact returned to the caller. It always
// has the full documented shape, even when the model's output could not
// be parsed.
type Result struct {
	Response  string     `json:"response"`
	ShowMap   bool       `json:"show_map"`
	Locations []Location `json:"locations"`

	// LocationContext echoes the request's location field; null when the
	// request carried none
	LocationContext *string `json:"location_context"`
}
