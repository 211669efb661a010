package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const maxSuggestions = 8

// GeminiGenerator 通过 Google GenAI SDK 调用 Gemini，JSON mode 下
// 要求模型返回 {"items": [...]} 包装对象（比顶层数组更稳定）。
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator 用 API key 构造生成器。
func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, timeout: timeout}, nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
}

func buildPrompt(seed string, mode Mode, contextGoal string) string {
	var task string
	if mode == ModeSubGoal {
		task = fmt.Sprintf(`The user has a Main Year Goal: %q.
Generate exactly 8 key sub-areas or sub-goals required to achieve this.
These will form the surrounding blocks of a Mandala chart.
Strings must be very concise (under 15 characters).`, seed)
	} else {
		task = fmt.Sprintf(`The user has a specific Sub-Goal: %q (which supports the Main Goal: %q).
Generate exactly 8 specific, concrete action plans.
IMPORTANT: The list must include a mix of:
- Daily habits (e.g. "Read 30m daily")
- Monthly goals (e.g. "Read 1 book/mo")
- Next Quarter goals
- Year-end goals
Keep them very concise (max 12 characters).`, seed, contextGoal)
	}

	return fmt.Sprintf(`Context: You are a mentor for a new employee at 'kt cloud'.
Tone: Encouraging, professional, growth-oriented.
Constraint: Return ONLY a JSON object with a property "items" containing 8 strings.

%s`, task)
}

// Generate 调用一次 Gemini 并解析包装对象。超时、配额、畸形输出
// 一律以 error 上抛，由调用方决定呈现方式（网格不做任何变更）。
func (g *GeminiGenerator) Generate(ctx context.Context, seed string, mode Mode, contextGoal string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(buildPrompt(seed, mode, contextGoal)),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.7)),
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	var result struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse suggestions JSON: %w", err)
	}
	if len(result.Items) > maxSuggestions {
		result.Items = result.Items[:maxSuggestions]
	}
	return result.Items, nil
}
