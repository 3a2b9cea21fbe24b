//go:build !embed_model

package embedder

const hasEmbeddedModel = false
