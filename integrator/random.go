package integrator

// Random is a xorshift128 generator. Each worker owns its own instance so
// sampling never touches shared state.
type Random struct {
	x, y, z, w uint32
}

// Create a generator. Generators created with the same seed produce the same
// sequence.
func NewRandom(seed uint32) *Random {
	rng := &Random{}
	rng.Seed(seed)
	return rng
}

// Reset the generator state.
func (r *Random) Seed(seed uint32) {
	r.x = 123456789 + seed
	r.y = 362436069
	r.z = 521288629
	r.w = 88675123
}

// Uint32 returns the next value in the sequence.
func (r *Random) Uint32() uint32 {
	t := r.x ^ (r.x << 11)
	r.x, r.y, r.z = r.y, r.z, r.w
	r.w = (r.w ^ (r.w >> 19)) ^ (t ^ (t >> 8))
	return r.w
}

// Float32 returns a uniform value in [0, 1). Only the top 24 bits are used
// so the result never rounds up to 1.
func (r *Random) Float32() float32 {
	return float32(r.Uint32()>>8) * (1.0 / (1 << 24))
}
