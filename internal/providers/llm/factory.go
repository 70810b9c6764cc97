package llm

import (
	"context"
	"fmt"
)

type Options struct {
	Provider       string // openai|vertex|noop
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	VertexProject  string
	VertexLocation string
	VertexModel    string
}

func New(ctx context.Context, o Options) (Scorer, error) {
	switch o.Provider {
	case "", "noop":
		return Noop{}, nil
	case "openai":
		if o.OpenAIAPIKey == "" && o.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("openai provider needs OPENAI_API_KEY or OPENAI_BASE_URL")
		}
		return NewOpenAI(o.OpenAIAPIKey, o.OpenAIBaseURL, o.OpenAIModel), nil
	case "vertex":
		if o.VertexProject == "" {
			return nil, fmt.Errorf("vertex provider needs VERTEX_PROJECT")
		}
		return NewVertexGemini(ctx, o.VertexProject, o.VertexLocation, o.VertexModel)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", o.Provider)
	}
}
