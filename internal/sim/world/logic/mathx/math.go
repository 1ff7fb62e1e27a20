package mathx

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// SplitMix64 is a small seedable generator. Same seed, same sequence.
type SplitMix64 struct {
	state uint64
}

func NewSplitMix64(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

func (s *SplitMix64) Uint64() uint64 {
	v := mix64(s.state)
	s.state += 0x9e3779b97f4a7c15
	return v
}

// Intn returns a value in [0,n). It panics if n <= 0, like math/rand.
func (s *SplitMix64) Intn(n int) int {
	if n <= 0 {
		panic("mathx: invalid argument to Intn")
	}
	return int(s.Uint64() % uint64(n))
}
