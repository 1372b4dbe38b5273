package transfer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-tiles/engine/diagnostics"
)

// Element is the set of 32-bit element types a Buffer may carry across threads.
type Element interface {
	~uint32 | ~float32
}

// Buffer is a move-only handle to a slice. Sending a Buffer through an Endpoint moves
// ownership to the receiver; every later access through the sender's handle fails with
// diagnostics.ErrBufferDetached.
type Buffer[T Element] struct {
	data     []T
	detached atomic.Bool
}

// NewBuffer wraps data. The caller must not retain or mutate data after the Buffer is sent.
//
// Parameters:
//   - data: the backing slice
//
// Returns:
//   - *Buffer[T]: an attached handle
func NewBuffer[T Element](data []T) *Buffer[T] {
	return &Buffer[T]{data: data}
}

// Len returns the element count, or 0 once detached.
func (b *Buffer[T]) Len() int {
	if b.detached.Load() {
		return 0
	}
	return len(b.data)
}

// Detached reports whether ownership has moved away from this handle.
func (b *Buffer[T]) Detached() bool {
	return b.detached.Load()
}

// Data returns the backing slice while the handle still owns it.
//
// Returns:
//   - []T: the backing slice
//   - error: diagnostics.ErrBufferDetached after the buffer has been sent
func (b *Buffer[T]) Data() ([]T, error) {
	if b.detached.Load() {
		return nil, diagnostics.ErrBufferDetached
	}
	return b.data, nil
}

// take detaches the handle and returns the slice. Only the first take succeeds.
func (b *Buffer[T]) take() ([]T, error) {
	if !b.detached.CompareAndSwap(false, true) {
		return nil, diagnostics.ErrBufferDetached
	}
	data := b.data
	b.data = nil
	return data, nil
}
