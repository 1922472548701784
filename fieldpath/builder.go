package fieldpath

import (
	"strconv"
	"sync"
)

// Builder builds element path strings such as "Patient.name[0].given".
// It reuses its byte buffer via sync.Pool.
type Builder struct {
	buf []byte
}

var builderPool = sync.Pool{
	New: func() any {
		return &Builder{
			buf: make([]byte, 0, 128),
		}
	},
}

// AcquireBuilder gets a Builder from the pool.
// Call Release() when done to return it to the pool.
func AcquireBuilder() *Builder {
	b := builderPool.Get().(*Builder)
	b.Reset()
	return b
}

// Release returns the Builder to the pool.
func (b *Builder) Release() {
	if b == nil {
		return
	}
	// Don't return oversized buffers to the pool
	if cap(b.buf) <= 1024 {
		builderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Append appends segments, each with a leading dot if the buffer is not empty.
func (b *Builder) Append(parts ...string) {
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(b.buf) > 0 {
			b.buf = append(b.buf, '.')
		}
		b.buf = append(b.buf, part...)
	}
}

// AppendIndex appends an array index in brackets [n].
func (b *Builder) AppendIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// String returns the built path.
func (b *Builder) String() string {
	return string(b.buf)
}

// Build builds a path using a callback on a pooled Builder.
//
//	path := fieldpath.Build(func(b *fieldpath.Builder) {
//	    b.Append("Patient", "address")
//	    b.AppendIndex(0)
//	    b.Append("postalCode")
//	})
func Build(fn func(*Builder)) string {
	b := AcquireBuilder()
	defer b.Release()
	fn(b)
	return b.String()
}

// Join joins path segments with dots, skipping empty ones.
func Join(segments ...string) string {
	if len(segments) == 1 {
		return segments[0]
	}
	return Build(func(b *Builder) {
		b.Append(segments...)
	})
}

// Index appends an array index to a base path.
func Index(base string, index int) string {
	return Build(func(b *Builder) {
		b.buf = append(b.buf, base...)
		b.AppendIndex(index)
	})
}
