package probes

import (
	"context"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	openai "github.com/sashabaranov/go-openai"
)

// AzureOpenAIProbe validates an Azure OpenAI deployment with a fixed chat
// prompt, and optionally embedding and vision sub-tests when the
// corresponding deployment ids are configured.
type AzureOpenAIProbe struct {
	cfg config.AzureOpenAIConfig
}

func NewAzureOpenAIProbe(cfg config.AzureOpenAIConfig) *AzureOpenAIProbe {
	return &AzureOpenAIProbe{cfg: cfg}
}

func (p *AzureOpenAIProbe) ID() string          { return "azure_openai" }
func (p *AzureOpenAIProbe) DisplayName() string { return "Azure OpenAI" }

func (p *AzureOpenAIProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"AZURE_OPENAI_ENDPOINT":        p.cfg.Endpoint,
		"AZURE_OPENAI_API_KEY":         p.cfg.APIKey,
		"AZURE_OPENAI_CHAT_DEPLOYMENT": p.cfg.ChatDeployment,
	})
}

func (p *AzureOpenAIProbe) client(deployment string) *openai.Client {
	cfg := openai.DefaultAzureConfig(p.cfg.APIKey, p.cfg.Endpoint)
	cfg.AzureModelMapperFunc = func(model string) string { return deployment }
	return openai.NewClientWithConfig(cfg)
}

func (p *AzureOpenAIProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	chatClient := p.client(p.cfg.ChatDeployment)
	resp, err := chatClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.cfg.ChatDeployment,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: standardChatPrompt}},
	})
	if err != nil || len(resp.Choices) == 0 {
		msg := "no response"
		if err != nil {
			msg = err.Error()
		}
		rec.Record("chat", fail("chat completion failed: "+msg,
			"verify AZURE_OPENAI_CHAT_DEPLOYMENT exists and the API key has access", "chat_failed"))
		return probe.StatusFailed, "chat completion failed", "check the chat deployment id and API key"
	}
	rec.Record("chat", ok("chat completion succeeded", map[string]interface{}{"reply": resp.Choices[0].Message.Content}))

	if p.cfg.EmbeddingDeployment == "" {
		rec.Record("embedding", probe.SubTestResult{Success: true, Message: "skipped: AZURE_OPENAI_EMBEDDING_DEPLOYMENT not set"})
	} else {
		embClient := p.client(p.cfg.EmbeddingDeployment)
		embResp, err := embClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.AdaEmbeddingV2,
			Input: []string{standardEmbeddingText},
		})
		if err != nil || len(embResp.Data) == 0 {
			msg := "no response"
			if err != nil {
				msg = err.Error()
			}
			rec.Record("embedding", fail("embedding failed: "+msg,
				"verify AZURE_OPENAI_EMBEDDING_DEPLOYMENT exists", "embedding_failed"))
			return probe.StatusFailed, "embedding failed", "check the embedding deployment id"
		}
		rec.Record("embedding", ok("embedding succeeded", map[string]interface{}{"dimensions": len(embResp.Data[0].Embedding)}))
	}

	if p.cfg.VisionDeployment == "" {
		rec.Record("vision", probe.SubTestResult{Success: true, Message: "skipped: AZURE_OPENAI_VISION_DEPLOYMENT not set"})
	} else {
		visionClient := p.client(p.cfg.VisionDeployment)
		resp, err := visionClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.cfg.VisionDeployment,
			Messages: []openai.ChatCompletionMessage{{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: standardVisionPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL: "data:image/png;base64," + TestImageBase64(),
					}},
				},
			}},
		})
		if err != nil || len(resp.Choices) == 0 {
			msg := "no response"
			if err != nil {
				msg = err.Error()
			}
			rec.Record("vision", fail("vision request failed: "+msg,
				"verify AZURE_OPENAI_VISION_DEPLOYMENT supports image input", "vision_failed"))
			return probe.StatusFailed, "vision request failed", "check the vision deployment id"
		}
		rec.Record("vision", ok("vision request succeeded", nil))
	}

	return probe.StatusPassed, "Azure OpenAI reachable", ""
}
