// Package embed defines the Embedder capability: a neural model that maps
// batches of strings to fixed-dimensional vectors. Concrete backends live
// under infrastructure/embedder.
package embed

import "context"

// DType identifies the element type an embedder natively produces.
type DType string

// Supported output dtypes. Only f16 and f32 are produced by any embedder
// wired into this module; i8 is named for forward compatibility with the
// capability's documented contract but has no concrete implementation.
const (
	DTypeF16 DType = "f16"
	DTypeF32 DType = "f32"
	DTypeI8  DType = "i8"
)

// Embeddings is a tagged union holding the output of one predict call.
// Exactly one of F16/F32 is populated, matching Dtype.
type Embeddings struct {
	Dtype DType
	F16   [][]uint16 // IEEE 754 half-precision bit patterns, see github.com/x448/float16
	F32   [][]float32
}

// Rows returns the batch size of the embeddings, regardless of dtype.
func (e Embeddings) Rows() int {
	switch e.Dtype {
	case DTypeF16:
		return len(e.F16)
	default:
		return len(e.F32)
	}
}

// ToF32 returns the embeddings widened to float32, regardless of the
// embedder's native dtype. Used by callers (e.g. the ANN index) that always
// operate on float32 slices.
func (e Embeddings) ToF32() [][]float32 {
	if e.Dtype == DTypeF32 {
		return e.F32
	}
	out := make([][]float32, len(e.F16))
	for i, row := range e.F16 {
		widened := make([]float32, len(row))
		for j, bits := range row {
			widened[j] = float16ToFloat32(bits)
		}
		out[i] = widened
	}
	return out
}

// Embedder is the capability every concrete embedder backend satisfies.
// Call order must be construct -> many Predict* calls -> Close. Embedders
// are safe for concurrent use by multiple readers.
type Embedder interface {
	// PredictF16 embeds batch, returning half-precision vectors. Only valid
	// when OutputDtype() == DTypeF16.
	PredictF16(ctx context.Context, batch []string) ([][]uint16, error)

	// PredictF32 embeds batch, returning single-precision vectors. Only
	// valid when OutputDtype() == DTypeF32.
	PredictF32(ctx context.Context, batch []string) ([][]float32, error)

	// OutputDim returns the fixed dimensionality of every embedding this
	// embedder produces.
	OutputDim() int

	// OutputDtype reports which of PredictF16/PredictF32 is valid to call.
	OutputDtype() DType

	// Close releases resources held by the embedder.
	Close() error
}

// Predict dispatches to PredictF16 or PredictF32 based on OutputDtype and
// returns the result as a tagged Embeddings union.
func Predict(ctx context.Context, e Embedder, batch []string) (Embeddings, error) {
	switch e.OutputDtype() {
	case DTypeF16:
		rows, err := e.PredictF16(ctx, batch)
		if err != nil {
			return Embeddings{}, err
		}
		return Embeddings{Dtype: DTypeF16, F16: rows}, nil
	default:
		rows, err := e.PredictF32(ctx, batch)
		if err != nil {
			return Embeddings{}, err
		}
		return Embeddings{Dtype: DTypeF32, F32: rows}, nil
	}
}
