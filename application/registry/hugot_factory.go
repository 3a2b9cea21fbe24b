package registry

import (
	"github.com/vexcore/vexel/domain/embed"
	"github.com/vexcore/vexel/infrastructure/embedder"
)

func newHugotEmbedder(cacheDir string) embed.Embedder {
	return embedder.NewHugotEmbedder(cacheDir)
}
