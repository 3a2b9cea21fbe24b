package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vexcore/vexel/domain/embed"
)

type fakeEmbedder struct {
	dim    int
	closed bool
}

func (f *fakeEmbedder) PredictF32(ctx context.Context, batch []string) ([][]float32, error) {
	out := make([][]float32, len(batch))
	for i := range batch {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) PredictF16(ctx context.Context, batch []string) ([][]uint16, error) {
	rows, _ := f.PredictF32(ctx, batch)
	out := make([][]uint16, len(rows))
	for i := range rows {
		out[i] = make([]uint16, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) OutputDim() int     { return f.dim }
func (f *fakeEmbedder) OutputDtype() embed.DType { return embed.DTypeF32 }
func (f *fakeEmbedder) Close() error       { f.closed = true; return nil }

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, remoteRef, variant, token string) (string, string, error) {
	return "/cache/" + remoteRef, variant, nil
}

func newTestRegistry(dim int) (*ModelRegistry, *fakeEmbedder) {
	fe := &fakeEmbedder{dim: dim}
	reg := NewModelRegistry(fakeResolver{}, "/cache", WithEmbedderFactory(func(dir string) embed.Embedder {
		return fe
	}))
	return reg, fe
}

func TestModelRegistry_Load_AssignsSequentialHandles(t *testing.T) {
	reg, _ := newTestRegistry(8)

	h1, err := reg.Load(context.Background(), "/local/model-a", "model.onnx", BackendHugot, "")
	require.NoError(t, err)
	require.Equal(t, Handle(1), h1)

	h2, err := reg.Load(context.Background(), "/local/model-b", "model.onnx", BackendHugot, "")
	require.NoError(t, err)
	require.Equal(t, Handle(2), h2)
}

func TestModelRegistry_Load_ResolvesHubRef(t *testing.T) {
	reg, _ := newTestRegistry(8)

	h, err := reg.Load(context.Background(), "hf://org/model", "model.onnx", BackendHugot, "tok")
	require.NoError(t, err)
	require.Equal(t, Handle(1), h)
}

func TestModelRegistry_Predict(t *testing.T) {
	reg, _ := newTestRegistry(4)
	h, err := reg.Load(context.Background(), "/local/model", "model.onnx", BackendHugot, "")
	require.NoError(t, err)

	out, err := reg.Predict(context.Background(), h, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Rows())

	dim, err := reg.OutputDim(h)
	require.NoError(t, err)
	require.Equal(t, 4, dim)

	dtype, err := reg.OutputDtype(h)
	require.NoError(t, err)
	require.Equal(t, embed.DTypeF32, dtype)
}

func TestModelRegistry_UnknownHandle(t *testing.T) {
	reg, _ := newTestRegistry(4)

	_, err := reg.Predict(context.Background(), 999, []string{"x"})
	require.Error(t, err)

	_, err = reg.OutputDim(999)
	require.Error(t, err)

	_, err = reg.OutputDtype(999)
	require.Error(t, err)
}

func TestModelRegistry_Close_ClosesAllEmbedders(t *testing.T) {
	reg, fe := newTestRegistry(4)
	_, err := reg.Load(context.Background(), "/local/model", "model.onnx", BackendHugot, "")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	require.True(t, fe.closed)
}
