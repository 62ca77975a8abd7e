package gleval

// SoftShadow accumulates the penumbra factor of a shadow ray marched from a surface towards a light.
// The factor is the minimum over all samples of clamp(d/(sharpness*t), 0, 1) where
// d is the scene distance at travel distance t. It starts at 1 (fully lit).
type SoftShadow struct {
	sharpness float32
	factor    float32
}

// NewSoftShadow returns a fully lit accumulator. Smaller sharpness values produce harder penumbras.
func NewSoftShadow(sharpness float32) SoftShadow {
	if sharpness <= 0 {
		panic("shadow sharpness must be positive")
	}
	return SoftShadow{sharpness: sharpness, factor: 1}
}

// Sample folds the scene distance d sampled at travel t into the factor.
func (s *SoftShadow) Sample(d, t float32) {
	if t <= 0 {
		return
	}
	k := d / (s.sharpness * t)
	if k < 0 {
		k = 0
	} else if k > 1 {
		k = 1
	}
	s.factor = min(s.factor, k)
}

// Occlude marks the ray as blocked by geometry.
func (s *SoftShadow) Occlude() { s.factor = 0 }

// Factor returns the accumulated light visibility in [0, 1].
func (s SoftShadow) Factor() float32 { return s.factor }
