package probes

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// AnthropicProbe validates an Anthropic API key with a models-list call
// and a fixed chat prompt.
type AnthropicProbe struct {
	cfg config.AnthropicConfig
}

func NewAnthropicProbe(cfg config.AnthropicConfig) *AnthropicProbe {
	return &AnthropicProbe{cfg: cfg}
}

func (p *AnthropicProbe) ID() string          { return "anthropic" }
func (p *AnthropicProbe) DisplayName() string { return "Anthropic" }

func (p *AnthropicProbe) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

func (p *AnthropicProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client := anthropic.NewClient(option.WithAPIKey(p.cfg.APIKey))

	if _, err := client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		rec.Record("api_key_validation", fail("API key rejected: "+err.Error(),
			"verify ANTHROPIC_API_KEY is valid and not revoked", "auth_failed"))
		return probe.StatusFailed, "API key validation failed", "check ANTHROPIC_API_KEY"
	}
	rec.Record("api_key_validation", ok("API key accepted", nil))

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(standardChatPrompt)),
		},
	})
	if err != nil || len(msg.Content) == 0 {
		m := "no response"
		if err != nil {
			m = err.Error()
		}
		rec.Record("chat", fail("chat completion failed: "+m,
			"verify ANTHROPIC_MODEL is a valid model id for this account", "chat_failed"))
		return probe.StatusFailed, "chat completion failed", "check the configured model and account access"
	}
	rec.Record("chat", ok("chat completion succeeded", nil))

	return probe.StatusPassed, "Anthropic reachable", ""
}
