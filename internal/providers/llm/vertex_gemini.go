package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Score(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	// GenerativeModel carries per-call settings, so build one per request.
	m := v.client.GenerativeModel(v.modelName)
	m.SetMaxOutputTokens(int32(maxTokens))
	m.SetTemperature(temperature)
	if systemPrompt != "" {
		m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(systemPrompt)}}
	}

	resp, err := m.GenerateContent(ctx, vertexgenai.Text(userPrompt))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break // first candidate only
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
