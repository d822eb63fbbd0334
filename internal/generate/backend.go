package generate

import (
	"context"
	"fmt"
)

// Request is one call to the text-generation backend.
type Request struct {
	Prompt      string
	Length      int
	N           int
	Temperature float64
	TopP        float64
	Model       string
}

// Completion is one returned continuation. TextOffsets are character offsets
// of each token measured from the start of the prompt, so offset minus prompt
// length locates a token within Text.
type Completion struct {
	Text          string
	TokenLogprobs []float64
	TextOffsets   []int
}

// Backend produces continuations. The orchestrator depends only on this
// shape, never on transport details.
type Backend interface {
	Complete(ctx context.Context, req Request) ([]Completion, error)
}

// BackendError reports a failure from the generation service. Placeholders
// created for the failed request are rolled back by the orchestrator.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation backend (status %d): %s", e.StatusCode, e.Message)
	}
	return "generation backend: " + e.Message
}
