package gleval

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPointRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 10000
	for i := 0; i < n; i++ {
		v := float32(rng.Float64()*200 - 100)
		got := FixedToFloat(FloatToFixed(v))
		if diff := math.Abs(float64(got - v)); diff > FixedPointPrecision+1e-5 {
			t.Fatalf("round trip of %g gave %g, diff %g", v, got, diff)
		}
	}
}

func TestFixedPointMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10000; i++ {
		a := float32(rng.Float64()*200 - 100)
		b := float32(rng.Float64()*200 - 100)
		if a > b {
			a, b = b, a
		}
		fa, fb := FloatToFixed(a), FloatToFixed(b)
		if fa > fb {
			t.Fatalf("encoding not monotonic: %g->%d > %g->%d", a, fa, b, fb)
		}
	}
}

func TestFixedPointInfinity(t *testing.T) {
	posInf := float32(math.Inf(1))
	negInf := float32(math.Inf(-1))
	assert.Equal(t, FixedPointPosInf, FloatToFixed(posInf))
	assert.Equal(t, FixedPointNegInf, FloatToFixed(negInf))
	assert.Equal(t, FixedPointPosInf, FloatToFixed(1e9))
	assert.Equal(t, FixedPointNegInf, FloatToFixed(-1e9))
	assert.True(t, math.IsInf(float64(FixedToFloat(FixedPointPosInf)), 1))
	assert.True(t, math.IsInf(float64(FixedToFloat(FixedPointNegInf)), -1))
	assert.Equal(t, int32(0), FloatToFixed(float32(math.NaN())))
	assert.Equal(t, int32(FixedPointScale), FloatToFixed(1))
	assert.Equal(t, int32(-FixedPointScale/2), FloatToFixed(-0.5))
}
