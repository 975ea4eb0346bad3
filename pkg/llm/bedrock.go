package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Bedrock invokes a Claude model hosted on AWS Bedrock.
type Bedrock struct {
	client *bedrockruntime.Client
	model  string
}

// NewBedrock loads AWS credentials from the default chain (env, profile, IAM role).
func NewBedrock(ctx context.Context, region, model string) (*Bedrock, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Bedrock{
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
	}, nil
}

func (b *Bedrock) Name() string { return "bedrock" }

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	Messages         []bedrockMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature,omitempty"`
	AnthropicVersion string           `json:"anthropic_version"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *Bedrock) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
		MaxTokens:        1024,
		Temperature:      0.1,
		AnthropicVersion: "bedrock-2023-05-31",
	})
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke bedrock model %s: %w", b.model, err)
	}

	var out bedrockResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("bedrock: no content returned")
	}
	return out.Content[0].Text, nil
}
