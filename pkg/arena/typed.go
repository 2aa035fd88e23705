package arena

import (
	"reflect"
)

const minSlabChunk = 16

// slab hands out T values from chunks that are never reallocated, so a
// pointer returned by NewValue stays valid until the owning arena is released.
type slab[T any] struct {
	free []T
}

func slabFor[T any](a *Arena) *slab[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()
	if s, ok := a.slabs[key]; ok {
		return s.(*slab[T])
	}
	s := &slab[T]{}
	a.slabs[key] = s
	return s
}

func chunkLen[T any](a *Arena) int {
	size := int(reflect.TypeOf((*T)(nil)).Elem().Size())
	if size == 0 {
		return minSlabChunk
	}
	return max(a.opts.BlockSize/size, minSlabChunk)
}

// MakeSlice returns n zero values of T laid out contiguously. The result has
// len == cap == n so appending to it never writes into a neighbour.
func MakeSlice[T any](a *Arena, n int) ([]T, error) {
	if a.released {
		return nil, ErrReleased
	}
	if n <= 0 {
		return nil, nil
	}
	s := slabFor[T](a)
	if len(s.free) < n {
		count := max(n, chunkLen[T](a))
		if err := a.reserve(align(count * int(reflect.TypeOf((*T)(nil)).Elem().Size()))); err != nil {
			return nil, err
		}
		s.free = make([]T, count)
		a.chunks++
	}
	out := s.free[:n:n]
	s.free = s.free[n:]
	a.used += int64(align(n * int(reflect.TypeOf((*T)(nil)).Elem().Size())))
	a.allocs++
	return out, nil
}

// NewValue places v in the arena and returns its stable address.
func NewValue[T any](a *Arena, v T) (*T, error) {
	out, err := MakeSlice[T](a, 1)
	if err != nil {
		return nil, err
	}
	out[0] = v
	return &out[0], nil
}

// Vec is a growable list whose backing storage lives in an arena. Growth
// allocates a fresh run of twice the capacity and copies the elements over.
type Vec[T any] struct {
	a     *Arena
	items []T
}

// NewVec returns an empty vector allocating from a.
func NewVec[T any](a *Arena) *Vec[T] {
	return &Vec[T]{a: a}
}

// Push appends v.
func (v *Vec[T]) Push(item T) error {
	if len(v.items) == cap(v.items) {
		grown, err := MakeSlice[T](v.a, max(2*cap(v.items), 4))
		if err != nil {
			return err
		}
		n := copy(grown, v.items)
		v.items = grown[:n]
	}
	v.items = append(v.items, item)
	return nil
}

func (v *Vec[T]) Len() int { return len(v.items) }

func (v *Vec[T]) At(i int) T { return v.items[i] }

func (v *Vec[T]) Set(i int, item T) { v.items[i] = item }

// Last returns the final element. It panics on an empty vector.
func (v *Vec[T]) Last() T { return v.items[len(v.items)-1] }

// Items exposes the live elements without copying.
func (v *Vec[T]) Items() []T { return v.items }
