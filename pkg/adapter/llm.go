package adapter

import (
	"context"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// Embedder turns text into a vector. The same text yields the same vector
// for a given model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the assistant reply for one turn
type Generator interface {
	Generate(ctx context.Context, input *GenerateInput) (string, error)
}

// GenerateInput carries the system instruction, prior conversation and the
// rendered user turn (grounding block, lead context and question)
type GenerateInput struct {
	SystemPrompt string
	History      []*model.Message
	Prompt       string
}
