package generativeAI

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/analyticalinvestments/omega-api/config"
)

// systemPrompt frames every model interaction as OMEGA AI, the platform's
// investing assistant.
const systemPrompt = `You are OMEGA AI, an expert investing assistant for the OMEGA platform.
You help users understand markets, analyze stocks, and learn investing concepts.
Be concise, factual, and practical. You provide educational analysis, not
personalized financial advice; say so when asked for direct recommendations.`

// AIClient wraps the Gemini client with the platform's model configuration.
type AIClient struct {
	client *genai.Client
	model  string
	cfg    config.AIConfig
}

func NewAIClient(ctx context.Context, cfg config.AIConfig) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &AIClient{
		client: client,
		model:  cfg.Model,
		cfg:    cfg,
	}, nil
}

func (ai *AIClient) baseConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   ai.cfg.MaxTokens,
		Temperature:       genai.Ptr[float32](0.7),
	}
}

// Complete runs a single-turn completion with prior conversation turns as
// history. History alternates user and model messages, oldest first.
func (ai *AIClient) Complete(ctx context.Context, history []*genai.Content, message string) (string, error) {
	chat, err := ai.client.Chats.Create(ctx, ai.model, ai.baseConfig(), history)
	if err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}

	result, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return result.Text(), nil
}

// GenerateJSON runs a completion constrained to a JSON response, used for
// structured report generation.
func (ai *AIClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	cfg := ai.baseConfig()
	cfg.ResponseMIMEType = "application/json"
	cfg.Temperature = genai.Ptr[float32](0.4)

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return result.Text(), nil
}
