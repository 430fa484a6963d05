package probes

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// BedrockProbe validates AWS Bedrock with a Converse-based chat call, an
// InvokeModel-based embedding call, and a Converse call carrying the
// bundled test image.
type BedrockProbe struct {
	cfg config.BedrockConfig
}

func NewBedrockProbe(cfg config.BedrockConfig) *BedrockProbe {
	return &BedrockProbe{cfg: cfg}
}

func (p *BedrockProbe) ID() string          { return "bedrock" }
func (p *BedrockProbe) DisplayName() string { return "AWS Bedrock" }

func (p *BedrockProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"BEDROCK_REGION":            p.cfg.Region,
		"BEDROCK_ACCESS_KEY_ID":     p.cfg.AccessKeyID,
		"BEDROCK_SECRET_ACCESS_KEY": p.cfg.SecretAccessKey,
	})
}

func (p *BedrockProbe) client(ctx context.Context) (*bedrockruntime.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.cfg.AccessKeyID, p.cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func (p *BedrockProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client, err := p.client(ctx)
	if err != nil {
		rec.Record("chat", fail("could not build client: "+err.Error(),
			"verify Bedrock credentials and region are valid", "client_error"))
		return probe.StatusError, "could not build client", "check BEDROCK_REGION/ACCESS_KEY_ID/SECRET_ACCESS_KEY"
	}

	_, err = client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: &p.cfg.ChatModelID,
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: standardChatPrompt}},
		}},
	})
	if err != nil {
		rec.Record("chat", fail("converse call failed: "+err.Error(),
			"verify the model id is enabled for this account/region", "chat_failed"))
		return probe.StatusFailed, "chat call failed", "check BEDROCK_CHAT_MODEL_ID and model access in this region"
	}
	rec.Record("chat", ok("converse succeeded", map[string]interface{}{"model": p.cfg.ChatModelID}))

	embeddingBody, _ := json.Marshal(map[string]string{"inputText": standardEmbeddingText})
	embResp, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &p.cfg.EmbeddingModelID,
		Body:        embeddingBody,
		ContentType: strPtr("application/json"),
	})
	if err != nil {
		rec.Record("embedding", fail("invoke model failed: "+err.Error(),
			"verify BEDROCK_EMBEDDING_MODEL_ID is enabled for this account/region", "embedding_failed"))
		return probe.StatusFailed, "embedding call failed", "check BEDROCK_EMBEDDING_MODEL_ID and model access"
	}
	var embOut struct {
		Embedding []float64 `json:"embedding"`
	}
	_ = json.Unmarshal(embResp.Body, &embOut)
	rec.Record("embedding", ok("invoke model succeeded", map[string]interface{}{"dimensions": len(embOut.Embedding)}))

	_, err = client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: &p.cfg.ChatModelID,
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: standardVisionPrompt},
				&types.ContentBlockMemberImage{Value: types.ImageBlock{
					Format: types.ImageFormatPng,
					Source: &types.ImageSourceMemberBytes{Value: TestImageBytes()},
				}},
			},
		}},
	})
	if err != nil {
		rec.Record("vision", fail("converse with image failed: "+err.Error(),
			"verify the chat model supports image input", "vision_failed"))
		return probe.StatusFailed, "vision call failed", "check that BEDROCK_CHAT_MODEL_ID supports vision input"
	}
	rec.Record("vision", ok("converse with image succeeded", nil))

	return probe.StatusPassed, fmt.Sprintf("Bedrock reachable (%s)", p.cfg.ChatModelID), ""
}

func strPtr(s string) *string { return &s }
