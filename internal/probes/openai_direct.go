package probes

import (
	"context"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDirectProbe validates an OpenAI public API key: a models-list
// call to confirm the key itself is accepted, then a fixed chat prompt.
type OpenAIDirectProbe struct {
	cfg config.OpenAIDirectConfig
}

func NewOpenAIDirectProbe(cfg config.OpenAIDirectConfig) *OpenAIDirectProbe {
	return &OpenAIDirectProbe{cfg: cfg}
}

func (p *OpenAIDirectProbe) ID() string          { return "openai_direct" }
func (p *OpenAIDirectProbe) DisplayName() string { return "OpenAI" }

func (p *OpenAIDirectProbe) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

func (p *OpenAIDirectProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client := openai.NewClient(p.cfg.APIKey)

	if _, err := client.ListModels(ctx); err != nil {
		rec.Record("api_key_validation", fail("API key rejected: "+err.Error(),
			"verify OPENAI_API_KEY is valid and not revoked", "auth_failed"))
		return probe.StatusFailed, "API key validation failed", "check OPENAI_API_KEY"
	}
	rec.Record("api_key_validation", ok("API key accepted", nil))

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: standardChatPrompt}},
	})
	if err != nil || len(resp.Choices) == 0 {
		msg := "no response"
		if err != nil {
			msg = err.Error()
		}
		rec.Record("chat", fail("chat completion failed: "+msg,
			"verify OPENAI_MODEL is available to this account", "chat_failed"))
		return probe.StatusFailed, "chat completion failed", "check the configured model and account access"
	}
	rec.Record("chat", ok("chat completion succeeded", map[string]interface{}{"reply": resp.Choices[0].Message.Content}))

	return probe.StatusPassed, "OpenAI reachable", ""
}
