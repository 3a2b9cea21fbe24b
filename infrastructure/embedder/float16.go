package embedder

import "github.com/x448/float16"

func float32ToFloat16Bits(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}
