package buffer

import "fmt"

const (
	// DefaultCapacity is what Reset and the zero value start from.
	DefaultCapacity = 8
	loadFactor      = 0.75
	growthFactor    = 2
)

// Buffer is a growable array. It doubles its capacity as soon as the element
// count reaches three quarters of the capacity.
type Buffer[T any] struct {
	data  []T
	count int
}

func New[T any](capacity int) *Buffer[T] {
	b := &Buffer[T]{}
	b.Init(capacity)
	return b
}

// Init allocates backing storage for capacity elements and drops any contents.
func (b *Buffer[T]) Init(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b.data = make([]T, capacity)
	b.count = 0
}

// Reset discards the contents and returns to DefaultCapacity.
func (b *Buffer[T]) Reset() { b.Init(DefaultCapacity) }

func (b *Buffer[T]) Append(v T) {
	if b.data == nil {
		b.Reset()
	}
	count := b.count + 1
	if float64(count) >= float64(len(b.data))*loadFactor {
		b.grow(len(b.data) * growthFactor)
	}
	b.data[count-1] = v
	b.count = count
}

// grow panics when the new capacity cannot be represented. This is not a
// diagnostic: nothing can continue without scratch space.
func (b *Buffer[T]) grow(newCap int) {
	if newCap <= len(b.data) {
		panic(fmt.Errorf("buffer: cannot grow capacity %d to %d", len(b.data), newCap))
	}
	data := make([]T, newCap)
	copy(data, b.data[:b.count])
	b.data = data
}

func (b *Buffer[T]) Len() int { return b.count }
func (b *Buffer[T]) Cap() int { return len(b.data) }

func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.count {
		panic(fmt.Sprintf("buffer: index %d out of range [0:%d]", i, b.count))
	}
	return b.data[i]
}

// Slice returns the live elements. The slice aliases the buffer until the
// next Append, Init or Reset.
func (b *Buffer[T]) Slice() []T { return b.data[:b.count] }

// Truncate keeps the first n elements and zeroes the rest so that dropped
// pointers can be collected.
func (b *Buffer[T]) Truncate(n int) {
	if n < 0 || n > b.count {
		return
	}
	var zero T
	for i := n; i < b.count; i++ {
		b.data[i] = zero
	}
	b.count = n
}

// Chars is the byte buffer used for token text.
type Chars struct {
	Buffer[byte]
}

func (c *Chars) AppendByte(ch byte) { c.Append(ch) }

func (c *Chars) AppendString(s string) {
	for i := 0; i < len(s); i++ {
		c.Append(s[i])
	}
}

func (c *Chars) String() string { return string(c.Slice()) }
func (c *Chars) Bytes() []byte  { return c.Slice() }
