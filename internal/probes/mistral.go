package probes

import (
	"context"

	mistral "github.com/gage-technologies/mistral-go"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// MistralProbe validates a Mistral API key with a models-list call and a
// fixed chat prompt.
type MistralProbe struct {
	cfg config.MistralConfig
}

func NewMistralProbe(cfg config.MistralConfig) *MistralProbe {
	return &MistralProbe{cfg: cfg}
}

func (p *MistralProbe) ID() string          { return "mistral" }
func (p *MistralProbe) DisplayName() string { return "Mistral" }

func (p *MistralProbe) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

func (p *MistralProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client := mistral.NewMistralClientDefault(p.cfg.APIKey)

	if _, err := client.ListModels(); err != nil {
		rec.Record("api_key_validation", fail("API key rejected: "+err.Error(),
			"verify MISTRAL_API_KEY is valid and not revoked", "auth_failed"))
		return probe.StatusFailed, "API key validation failed", "check MISTRAL_API_KEY"
	}
	rec.Record("api_key_validation", ok("API key accepted", nil))

	resp, err := client.Chat(p.cfg.Model, []mistral.ChatMessage{{Role: "user", Content: standardChatPrompt}}, nil)
	if err != nil || len(resp.Choices) == 0 {
		msg := "no response"
		if err != nil {
			msg = err.Error()
		}
		rec.Record("chat", fail("chat completion failed: "+msg,
			"verify MISTRAL_MODEL is available to this account", "chat_failed"))
		return probe.StatusFailed, "chat completion failed", "check the configured model and account access"
	}
	rec.Record("chat", ok("chat completion succeeded", nil))

	return probe.StatusPassed, "Mistral reachable", ""
}
