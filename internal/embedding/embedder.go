// Package embedding is the boundary to the embedding model. Reconciliation
// passes never embed (scans use a neutral zero vector); the embedder serves
// operator spot-check queries and the startup credential verification.
package embedding

import "context"

// Embedder defines the interface contract for embedding generation services.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
