package transcoder

import (
	"bytes"
	"sync"
)

const (
	// Pool limits to prevent memory bloat
	poolMaxBufCap  = 64 << 10
	poolInitBufCap = 256
)

// scratch buffers for MessagePack encoding
var bufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, poolInitBufCap))
	},
}

func getBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func putBuf(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > poolMaxBufCap {
		return // reject oversized
	}
	buf.Reset()
	bufPool.Put(buf)
}
