//go:build embed_model

package embedder

import "embed"

//go:embed all:models
var embeddedModelFS embed.FS

const hasEmbeddedModel = true
