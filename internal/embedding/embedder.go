// Package embedding provides text embedding via an OpenAI-compatible API,
// with batching, retries, and caching.
package embedding

import (
	"context"
	"fmt"

	"github.com/fnly/tana/internal/models"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ProviderError is a failure surfaced by the embedding provider: rate limit,
// auth error, malformed input, or transport failure.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("embedding provider error (status %d): %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("embedding provider error: %v", e.Err)
	}
	return "embedding provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// VerifyDimensions embeds a short probe text and checks the vector length
// against the configured dimensionality. A mismatch is a configuration error
// and should abort startup.
func VerifyDimensions(ctx context.Context, e Embedder, want int) error {
	vec, err := e.Embed(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("dimension probe failed: %w", err)
	}
	if len(vec) != want {
		return &models.DimensionMismatchError{Got: len(vec), Want: want}
	}
	return nil
}
