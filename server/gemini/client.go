package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/localmind-ai/localmind/config"
)

// Verify at compile time that Client implements Generator
var _ Generator = (*Client)(nil)

// resultSchema declares the JSON shape the model must emit. Gemini's
// native JSON mode enforces it server-side, but the normalizer still
// treats the output as untrusted text.
var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"response": {
			Type:        genai.TypeString,
			Description: "The assistant's answer, in the user's preferred language.",
		},
		"show_map": {
			Type:        genai.TypeBoolean,
			Description: "Whether the locations are worth rendering on a map.",
		},
		"locations": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":      {Type: genai.TypeString},
					"latitude":  {Type: genai.TypeNumber},
					"longitude": {Type: genai.TypeNumber},
					"address":   {Type: genai.TypeString},
				},
				Required: []string{"name", "latitude", "longitude"},
			},
		},
	},
	Required: []string{"response", "show_map", "locations"},
}

// Client calls the Gemini API. One Client is built at startup from the
// immutable configuration and shared by all requests; it holds no
// per-request state.
type Client struct {
	client *genai.Client
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewClient creates a Gemini client from the given configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Generate implements Generator. The call blocks until the model
// answers; a deadline is applied only when one is configured, so the
// default behavior is an unbounded wait. The request context still
// propagates, so a disconnecting client cancels the upstream call.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	contents := buildContents(req)
	genCfg := c.generationConfig()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini call completed",
		zap.String("model", c.cfg.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("candidates", len(resp.Candidates)),
	)

	return resp.Text(), nil
}

// buildContents assembles the single user turn: prompt text first, then
// inline data parts for each attachment.
func buildContents(req Request) []*genai.Content {
	parts := []*genai.Part{{Text: req.Prompt}}
	for _, m := range req.Media {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: m.MIMEType,
				Data:     m.Data,
			},
		})
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}

// generationConfig requests native JSON output conforming to
// resultSchema, plus the Google Search grounding tool when enabled.
func (c *Client) generationConfig() *genai.GenerateContentConfig {
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema,
	}
	if c.cfg.SearchGrounding {
		genCfg.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}
	if c.cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(c.cfg.Temperature))
	}
	return genCfg
}
