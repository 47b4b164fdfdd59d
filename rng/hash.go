package rng

// Pcg4D hashes four uint32 lanes in place, the construction
// `differentiation.cpp` (package diff's grounding source, spec §4.H)
// calls as `pcg4d(as_uint4(grad))` when picking a collision-avoidance
// slot for a gradient write. The original's header defining pcg4d
// itself wasn't retained in the pack; this is the standard
// multiply-xorshift pcg4d hash (Jarzynski & Olano, "Hash Functions for
// GPU Rendering"), the same four-lane PCG construction most renderers
// in this space use for exactly this purpose.
func Pcg4D(v [4]uint32) [4]uint32 {
	v[0] = v[0]*1664525 + 1013904223
	v[1] = v[1]*1664525 + 1013904223
	v[2] = v[2]*1664525 + 1013904223
	v[3] = v[3]*1664525 + 1013904223

	v[0] += v[1] * v[3]
	v[1] += v[2] * v[0]
	v[2] += v[3] * v[1]
	v[3] += v[0] * v[2]

	v[0] ^= v[0] >> 16
	v[1] ^= v[1] >> 16
	v[2] ^= v[2] >> 16
	v[3] ^= v[3] >> 16

	v[0] += v[1] * v[3]
	v[1] += v[2] * v[0]
	v[2] += v[3] * v[1]
	v[3] += v[0] * v[2]

	return v
}

// HashPixelSample derives a (state, sequence) pair for seeding a PCG32
// stream unique to a given pixel and sample index, the construction the
// Independent sampler (spec §4.J) uses for its "PCG32 streams keyed by
// (pixel, sample_index)" requirement. Built on Pcg4D rather than a
// second hash primitive, since one collision-resistant 4-lane hash
// already covers every per-pixel keying need in this module.
func HashPixelSample(px, py, sampleIndex int, seed uint64) (state, sequence uint64) {
	h := Pcg4D([4]uint32{uint32(px), uint32(py), uint32(sampleIndex), uint32(seed)})
	state = uint64(h[0])<<32 | uint64(h[1])
	sequence = uint64(h[2])<<32 | uint64(h[3])
	return state, sequence
}

// Hash32 is a small non-cryptographic avalanche hash used where the
// original calls xxhash32 on a single uint (e.g. tile_shared.cpp's
// per-sample jitter offset); a general-purpose hashing library wasn't
// part of any retrieved example's dependency surface, so this stays a
// self-contained stdlib function rather than introducing one for a
// single call site.
func Hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}
