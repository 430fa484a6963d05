package probes

import (
	"context"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	openai "github.com/sashabaranov/go-openai"
)

// DedicatedEmbeddingProbe validates a standalone OpenAI-compatible
// embedding endpoint: connectivity, an embedding call, and the reported
// vector dimensionality.
type DedicatedEmbeddingProbe struct {
	cfg config.DedicatedEmbeddingConfig
}

func NewDedicatedEmbeddingProbe(cfg config.DedicatedEmbeddingConfig) *DedicatedEmbeddingProbe {
	return &DedicatedEmbeddingProbe{cfg: cfg}
}

func (p *DedicatedEmbeddingProbe) ID() string          { return "dedicated_embedding" }
func (p *DedicatedEmbeddingProbe) DisplayName() string { return "Dedicated Embedding Endpoint" }

func (p *DedicatedEmbeddingProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"DEDICATED_EMBEDDING_BASE_URL": p.cfg.BaseURL,
		"DEDICATED_EMBEDDING_MODEL":    p.cfg.Model,
	})
}

func (p *DedicatedEmbeddingProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	cfg := openai.DefaultConfig(p.cfg.APIKey)
	cfg.BaseURL = p.cfg.BaseURL
	client := openai.NewClientWithConfig(cfg)

	if _, err := client.ListModels(ctx); err != nil {
		rec.Record("connect", fail("could not reach endpoint: "+err.Error(),
			"verify DEDICATED_EMBEDDING_BASE_URL is reachable", "connect_failed"))
		return probe.StatusFailed, "connection failed", "check DEDICATED_EMBEDDING_BASE_URL and network access"
	}
	rec.Record("connect", ok("endpoint reachable", nil))

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{standardEmbeddingText},
		Model: openai.EmbeddingModel(p.cfg.Model),
	})
	if err != nil || len(resp.Data) == 0 {
		msg := "no response"
		if err != nil {
			msg = err.Error()
		}
		rec.Record("embedding", fail("embedding call failed: "+msg,
			"verify DEDICATED_EMBEDDING_MODEL is served by this endpoint", "embedding_failed"))
		return probe.StatusFailed, "embedding call failed", "check the configured model name"
	}
	dims := len(resp.Data[0].Embedding)
	rec.Record("embedding", ok("embedding succeeded", map[string]interface{}{"dimensions": dims}))
	rec.Record("dimensions", ok("vector dimensionality reported", map[string]interface{}{"dimensions": dims}))

	return probe.StatusPassed, "dedicated embedding endpoint reachable", ""
}
