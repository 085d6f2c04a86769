package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/localmind-ai/localmind/server/gemini"
	"github.com/localmind-ai/localmind/server/metrics"
)

const (
	// unknownLocation is substituted when the request carries no location.
	unknownLocation = "Unknown Location"

	// defaultUserText is substituted when the request carries no text and
	// the model should work from the attached media alone.
	defaultUserText = "Analyze my input."
)

// defaultPromptTemplate is the fixed instruction rendered for every
// request. Only presence/absence substitution happens here; there is no
// other branching.
const defaultPromptTemplate = `You are LocalMind AI, a hyperlocal assistant.
Your goal is to provide real-time, actionable intelligence based on the user's location and input.

CONTEXT:
- Location: {{.Location}}
- User's Language Preference: {{.LanguageCode}} (respond in this language, or English if unsure; mixed/colloquial phrasing is fine where it fits).

INSTRUCTIONS:
1. Analyze whichever inputs are present (image, audio, text).
2. Identify specific local details (shops, signs, food, transport, safety).
3. Provide estimated prices, safety tips, or transport options if relevant.
4. Be CONCISE and ACTIONABLE. No long wiki-style answers.
5. If the user asks about a price, give a realistic estimate for that area. Use web search to resolve real places and their coordinates.
6. Reply with a single JSON object of the form {"response": string, "show_map": boolean, "locations": [{"name": string, "latitude": number, "longitude": number, "address": string}]}. Set "show_map" to true and fill "locations" only when concrete places are worth showing on a map.

USER INPUT:
{{.Text}}`

// promptData holds the three substitution fields of the template.
type promptData struct {
	Location     string
	LanguageCode string
	Text         string
}

// Processor handles prompt rendering and response normalization for the
// analyze pipeline. The template is compiled once at construction to
// fail fast on an invalid override.
type Processor struct {
	gen     gemini.Generator
	tmpl    *template.Template
	encoder *tiktoken.Tiktoken
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewProcessor creates a processor around the given generator. tmplText
// overrides the built-in instruction template when non-empty; m may be
// nil when metrics are not wanted (tests).
func NewProcessor(gen gemini.Generator, tmplText string, m *metrics.Metrics, logger *zap.Logger) (*Processor, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if tmplText == "" {
		tmplText = defaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	// cl100k is not Gemini's tokenizer; the count is an estimate used
	// only for logs and metrics.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token counter: %w", err)
	}

	return &Processor{
		gen:     gen,
		tmpl:    tmpl,
		encoder: encoder,
		logger:  logger,
		metrics: m,
	}, nil
}

// Process runs one request end to end: render, generate, normalize.
// Generation errors propagate to the caller; normalization never fails.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	prompt, err := p.renderPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("prompt rendering failed: %w", err)
	}

	tokens := len(p.encoder.Encode(prompt, nil, nil))
	p.logger.Debug("prompt rendered",
		zap.Int("estimated_tokens", tokens),
		zap.Int("media_parts", len(req.Media)),
	)
	if p.metrics != nil {
		p.metrics.PromptTokens.Observe(float64(tokens))
	}

	start := time.Now()
	raw, err := p.gen.Generate(ctx, gemini.Request{Prompt: prompt, Media: req.Media})
	if p.metrics != nil {
		p.metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	return p.normalize(raw, req.Location), nil
}

// renderPrompt executes the template with placeholders applied for
// absent fields.
func (p *Processor) renderPrompt(req Request) (string, error) {
	data := promptData{
		Location:     req.Location,
		LanguageCode: req.LanguageCode,
		Text:         req.Text,
	}
	if data.Location == "" {
		data.Location = unknownLocation
	}
	if data.LanguageCode == "" {
		data.LanguageCode = "en"
	}
	if data.Text == "" {
		data.Text = defaultUserText
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalize parses the model's text as JSON and maps it onto the
// documented shape. Parse failures are silently degraded into a
// raw-text result; downstream clients depend on always receiving the
// full shape with a 200.
func (p *Processor) normalize(raw, location string) *Result {
	result := &Result{
		Locations: []Location{},
	}
	if location != "" {
		result.LocationContext = &location
	}

	cleaned := cleanJSON(raw)

	var out modelOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		p.logger.Warn("model output is not valid JSON, returning raw text",
			zap.Error(err),
			zap.Int("length", len(raw)),
		)
		result.Response = raw
		return result
	}

	result.Response = out.Response
	result.ShowMap = out.ShowMap
	if out.Locations != nil {
		result.Locations = out.Locations
	}
	return result
}

// cleanJSON strips a surrounding markdown code fence, which models emit
// even when asked for bare JSON.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
