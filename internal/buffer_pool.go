package internal

import (
	"bytes"
	"sync"
)

// maxRetainedBufferSize keeps a single huge reply (e.g. listallinfo on a big
// library) from pinning memory in the pool.
const maxRetainedBufferSize = 1 << 20

type ByteBufferPool struct {
	pool sync.Pool
}

func NewByteBufferPool(initialSize int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

func (p *ByteBufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

func (p *ByteBufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() > maxRetainedBufferSize {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
