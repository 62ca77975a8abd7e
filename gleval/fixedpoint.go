package gleval

import "math"

// FixedPointScale is the number of fixed point units per world unit.
// A power of two keeps GPU and CPU conversions bit exact.
const FixedPointScale = 1 << 14

// FixedPointPrecision is the maximum error of a fixed point round trip for values within [FixedPointMax].
const FixedPointPrecision = 0.5 / FixedPointScale

// FixedPointMax is the largest magnitude representable as a finite fixed point value.
const FixedPointMax = math.MaxInt32 / FixedPointScale

const (
	// FixedPointPosInf is the encoding of +∞ and of any value at or above [FixedPointMax].
	FixedPointPosInf int32 = math.MaxInt32
	// FixedPointNegInf is the encoding of -∞ and of any value at or below -[FixedPointMax].
	FixedPointNegInf int32 = math.MinInt32
)

// FloatToFixed encodes v as a fixed point integer suitable for GPU atomic min/max.
// Encoding is monotonic. NaN encodes to zero.
func FloatToFixed(v float32) int32 {
	if v != v {
		return 0
	}
	s := float64(v) * FixedPointScale
	if s >= math.MaxInt32 {
		return FixedPointPosInf
	} else if s <= math.MinInt32 {
		return FixedPointNegInf
	}
	return int32(math.Floor(s + 0.5))
}

// FixedToFloat decodes a fixed point integer. The infinity encodings decode to ±∞.
func FixedToFloat(v int32) float32 {
	switch v {
	case FixedPointPosInf:
		return float32(math.Inf(1))
	case FixedPointNegInf:
		return float32(math.Inf(-1))
	}
	return float32(float64(v) / FixedPointScale)
}
