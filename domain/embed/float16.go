package embed

import "github.com/x448/float16"

func float16ToFloat32(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

func float32ToFloat16(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}
