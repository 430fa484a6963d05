package probes

import (
	"context"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	"google.golang.org/genai"
)

// GeminiProbe validates a Google Generative Language API key with a
// models-list call and a fixed chat prompt.
type GeminiProbe struct {
	cfg config.GeminiConfig
}

func NewGeminiProbe(cfg config.GeminiConfig) *GeminiProbe {
	return &GeminiProbe{cfg: cfg}
}

func (p *GeminiProbe) ID() string          { return "gemini" }
func (p *GeminiProbe) DisplayName() string { return "Google Gemini" }

func (p *GeminiProbe) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

func (p *GeminiProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		rec.Record("api_key_validation", fail("could not build client: "+err.Error(),
			"verify GEMINI_API_KEY is well-formed", "client_error"))
		return probe.StatusError, "could not build client", "check GEMINI_API_KEY"
	}

	pager := client.Models.All(ctx)
	if _, err := pager.Next(); err != nil {
		rec.Record("api_key_validation", fail("API key rejected: "+err.Error(),
			"verify GEMINI_API_KEY is valid and not revoked", "auth_failed"))
		return probe.StatusFailed, "API key validation failed", "check GEMINI_API_KEY"
	}
	rec.Record("api_key_validation", ok("API key accepted", nil))

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(standardChatPrompt), nil)
	if err != nil || resp == nil || len(resp.Candidates) == 0 {
		msg := "no response"
		if err != nil {
			msg = err.Error()
		}
		rec.Record("chat", fail("generate content failed: "+msg,
			"verify GEMINI_MODEL is available to this API key", "chat_failed"))
		return probe.StatusFailed, "chat completion failed", "check the configured model and API key access"
	}
	rec.Record("chat", ok("generate content succeeded", nil))

	return probe.StatusPassed, "Gemini reachable", ""
}
