// Package arena implements the region allocator that backs one module load.
//
// Memory handed out by an Arena is never moved: when the current block is
// exhausted a fresh block is appended, and only the list of block headers is
// reallocated as it grows. Everything is dropped at once by Release.
package arena

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultBlockSize is the capacity of a freshly appended block.
	DefaultBlockSize = 1024

	defaultBlockListCap = 8
	wordSize            = int(unsafe.Sizeof(uintptr(0)))
)

var (
	// ErrOutOfMemory is returned when an allocation would exceed Options.MaxBytes.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrReleased is returned when allocating from a released arena.
	ErrReleased = errors.New("arena: allocation after release")
)

// Options tunes block sizing and the reservation ceiling.
type Options struct {
	BlockSize int
	// MaxBytes caps the total reserved bytes; 0 means unlimited.
	MaxBytes int64
}

func (o *Options) normalize() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.BlockSize <= 0 {
		out.BlockSize = DefaultBlockSize
	}
	if out.MaxBytes < 0 {
		out.MaxBytes = 0
	}
	return out
}

// Arena is a bump allocator over a growable list of byte blocks plus a set of
// typed slabs for Go values that hold pointers.
type Arena struct {
	opts     Options
	blocks   [][]byte
	cursor   int
	used     int64
	reserved int64
	allocs   int
	chunks   int
	slabs    map[reflect.Type]any
	released bool
}

// New returns an empty arena. A nil opts selects the defaults.
func New(opts *Options) *Arena {
	return &Arena{
		opts:   opts.normalize(),
		blocks: make([][]byte, 0, defaultBlockListCap),
		slabs:  make(map[reflect.Type]any),
	}
}

func align(size int) int {
	return (size + wordSize - 1) &^ (wordSize - 1)
}

// reserve accounts for n more bytes of backing storage.
func (a *Arena) reserve(n int) error {
	if a.released {
		return ErrReleased
	}
	if a.opts.MaxBytes > 0 && a.reserved+int64(n) > a.opts.MaxBytes {
		return fmt.Errorf("%w: reserving %s would exceed %s", ErrOutOfMemory,
			humanize.IBytes(uint64(n)), humanize.IBytes(uint64(a.opts.MaxBytes)))
	}
	a.reserved += int64(n)
	return nil
}

func (a *Arena) appendBlock(size int) error {
	if err := a.reserve(size); err != nil {
		return err
	}
	if len(a.blocks) == cap(a.blocks) {
		grown := make([][]byte, len(a.blocks), 2*cap(a.blocks))
		copy(grown, a.blocks)
		a.blocks = grown
	}
	a.blocks = append(a.blocks, make([]byte, size))
	a.cursor = 0
	return nil
}

// Alloc returns size zeroed bytes. The size is rounded up to the pointer size;
// a zero size yields nil.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if a.released {
		return nil, ErrReleased
	}
	if size < 0 {
		return nil, fmt.Errorf("arena: negative allocation size %d", size)
	}
	if size == 0 {
		return nil, nil
	}
	rounded := align(size)
	if len(a.blocks) == 0 || len(a.blocks[len(a.blocks)-1])-a.cursor < rounded {
		if err := a.appendBlock(max(rounded, a.opts.BlockSize)); err != nil {
			return nil, err
		}
	}
	block := a.blocks[len(a.blocks)-1]
	start := a.cursor
	a.cursor += rounded
	a.used += int64(rounded)
	a.allocs++
	return block[start : start+size : start+size], nil
}

// Bytes copies b into the arena.
func (a *Arena) Bytes(b []byte) ([]byte, error) {
	out, err := a.Alloc(len(b))
	if err != nil {
		return nil, err
	}
	copy(out, b)
	return out, nil
}

// String copies s into the arena and returns a string backed by block storage.
func (a *Arena) String(s string) (string, error) {
	if len(s) == 0 {
		if a.released {
			return "", ErrReleased
		}
		return "", nil
	}
	out, err := a.Alloc(len(s))
	if err != nil {
		return "", err
	}
	copy(out, s)
	return unsafe.String(&out[0], len(out)), nil
}

// Release drops every block and slab. The arena cannot be used afterwards.
func (a *Arena) Release() {
	a.blocks = nil
	a.slabs = nil
	a.cursor = 0
	a.released = true
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool { return a.released }

// Stats summarises arena usage. Byte blocks and typed slab chunks are
// counted separately; Used and Reserved cover both, rounded to the word size.
type Stats struct {
	Blocks      int
	Chunks      int
	Used        int64
	Reserved    int64
	Allocations int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d blocks, %d slab chunks, %s used of %s reserved, %s allocations",
		s.Blocks, s.Chunks, humanize.IBytes(uint64(s.Used)), humanize.IBytes(uint64(s.Reserved)),
		humanize.Comma(int64(s.Allocations)))
}

// Stats reports the current usage counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Blocks:      len(a.blocks),
		Chunks:      a.chunks,
		Used:        a.used,
		Reserved:    a.reserved,
		Allocations: a.allocs,
	}
}
