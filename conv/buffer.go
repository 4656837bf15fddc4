package conv

import "sync"

// Staging buffer sizes for string-formatted remote fetches, including room
// for a terminator.
const (
	DateBufferLen     = 11
	DateTimeBufferLen = 27
	DecimalBufferLen  = 35
	Int8BufferLen     = 21
)

type stagingPool struct {
	size int
	pool sync.Pool
}

var stagingPools = func() []*stagingPool {
	sizes := []int{DateBufferLen, Int8BufferLen, DateTimeBufferLen, DecimalBufferLen}
	pools := make([]*stagingPool, len(sizes))
	for i, size := range sizes {
		p := &stagingPool{size: size}
		p.pool.New = func() any {
			b := make([]byte, p.size)
			return &b
		}
		pools[i] = p
	}
	return pools
}()

// trackBuffer, when set, observes every staging buffer taken (+1) and
// returned (-1).
var trackBuffer func(delta int)

func poolFor(size int) *stagingPool {
	for _, p := range stagingPools {
		if p.size == size {
			return p
		}
	}
	return nil
}

// getBuffer returns a zeroed staging buffer of exactly size bytes. The caller
// owns it until putBuffer.
func getBuffer(size int) *[]byte {
	if trackBuffer != nil {
		trackBuffer(1)
	}
	p := poolFor(size)
	if p == nil {
		b := make([]byte, size)
		return &b
	}
	b := p.pool.Get().(*[]byte)
	clear(*b)
	return b
}

func putBuffer(b *[]byte) {
	if trackBuffer != nil {
		trackBuffer(-1)
	}
	if p := poolFor(len(*b)); p != nil {
		p.pool.Put(b)
	}
}

// fetchText runs a string-formatted fetch into a staging buffer of size
// bytes and copies the result out. A value longer than the buffer is fetched
// again into a buffer of the length the accessor reported. ok is false only
// when the accessor cannot produce the value at all.
func fetchText(size int, fetch func(buf []byte) (int, bool)) (string, bool) {
	buf := getBuffer(size)
	defer putBuffer(buf)

	n, ok := fetch(*buf)
	if ok {
		return string((*buf)[:n]), true
	}
	if n <= len(*buf) {
		return "", false
	}
	long := make([]byte, n)
	n, ok = fetch(long)
	if !ok {
		return "", false
	}
	return string(long[:n]), true
}
