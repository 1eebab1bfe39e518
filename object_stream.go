package rvgpu

// minStreamCap is the smallest capacity objectStream grows to.
const minStreamCap = 1024

// objectStream is a growable in-memory output stream for emitted code.
// Capacity grows to the larger of 1KB and 4/3 of the current capacity.
type objectStream struct {
	buf []byte
	pos int
}

// Write appends p. Wrapping the write position panics.
func (s *objectStream) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end < s.pos {
		panic("rvgpu: object stream position overflow")
	}
	if end > cap(s.buf) {
		s.grow(end)
	}
	s.buf = s.buf[:end]
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *objectStream) grow(need int) {
	newCap := cap(s.buf) + cap(s.buf)/3
	if newCap < minStreamCap {
		newCap = minStreamCap
	}
	for newCap < need {
		newCap += newCap / 3
	}
	buf := make([]byte, s.pos, newCap)
	copy(buf, s.buf[:s.pos])
	s.buf = buf
}

// Bytes returns the written bytes; ownership passes to the caller.
func (s *objectStream) Bytes() []byte { return s.buf[:s.pos] }
