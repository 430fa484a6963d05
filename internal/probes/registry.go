package probes

import (
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// BuildAll constructs every probe named in the seventeen-probe table and
// returns them in the table's order, ready to hand to probe.NewRegistry.
// Kubernetes namespace defaults to "default" when unset; it is only used
// by the pvc probe's scratch-PVC lifecycle, not by the diagnostics
// collector (which takes its namespace per-request).
func BuildAll(cfg *config.Config, pvcNamespace string) []probe.Probe {
	return []probe.Probe{
		NewPostgreSQLV2Probe(cfg.Probes.PostgreSQL),
		NewCassandraProbe(cfg.Probes.Cassandra),
		NewBlobStorageProbe(cfg.Probes.BlobStorage),
		NewS3Probe(cfg.Probes.S3),
		NewS3CompatibleProbe(cfg.Probes.S3Compatible),
		NewAzureOpenAIProbe(cfg.Probes.AzureOpenAI),
		NewBedrockProbe(cfg.Probes.Bedrock),
		NewOpenAIDirectProbe(cfg.Probes.OpenAIDirect),
		NewAnthropicProbe(cfg.Probes.Anthropic),
		NewGeminiProbe(cfg.Probes.Gemini),
		NewMistralProbe(cfg.Probes.Mistral),
		NewDedicatedEmbeddingProbe(cfg.Probes.DedicatedEmbedding),
		NewDocIntelProbe(cfg.Probes.DocIntel),
		NewPVCProbe(cfg.Probes.Kubernetes, pvcNamespace),
		NewGPUProbe(),
		NewDNSProbe(cfg.Probes.DNS),
		NewSSLProbe(cfg.Probes.SSL),
	}
}
