package sim

// === LCG constants ===

const (
	// LCGModulus is 2^31. Draws are seed/LCGModulus, so every value is exact in a float64.
	LCGModulus int64 = 1 << 31
	// LCGMultiplier and LCGIncrement are the Numerical Recipes constants.
	LCGMultiplier int64 = 1664525
	LCGIncrement  int64 = 1013904223
)

// === RandomStream ===

// RandomStream is the single source of randomness for one simulation run.
// Interarrival and service times are both drawn from it, in event order, so
// the whole run is a pure function of the initial seed.
//
// Thread-safety: NOT thread-safe. Each Simulator owns its own stream.
type RandomStream struct {
	seed       int64
	multiplier int64
	increment  int64
	modulus    int64
	drawsUsed  int64
}

// NewRandomStream creates a stream from a caller-supplied seed.
// Seeds outside [0, LCGModulus) are reduced into range (negative seeds wrap),
// which also keeps multiplier*seed well inside int64.
func NewRandomStream(seed int64) *RandomStream {
	s := seed % LCGModulus
	if s < 0 {
		s += LCGModulus
	}
	return &RandomStream{
		seed:       s,
		multiplier: LCGMultiplier,
		increment:  LCGIncrement,
		modulus:    LCGModulus,
	}
}

// Draw advances the generator and returns a uniform value in [0, 1).
func (r *RandomStream) Draw() float64 {
	r.seed = (r.multiplier*r.seed + r.increment) % r.modulus
	r.drawsUsed++
	return float64(r.seed) / float64(r.modulus)
}

// RangeDraw returns min + (max-min)*Draw().
func (r *RandomStream) RangeDraw(min, max float64) float64 {
	// explicit conversion forbids fusing into an FMA, keeping results
	// identical across architectures
	return min + float64((max-min)*r.Draw())
}

// DrawsUsed returns the number of values drawn so far.
func (r *RandomStream) DrawsUsed() int64 {
	return r.drawsUsed
}

// Seed returns the current generator state.
func (r *RandomStream) Seed() int64 {
	return r.seed
}
