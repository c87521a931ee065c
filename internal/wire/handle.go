package wire

import (
	"sync"
	"sync/atomic"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// HandleOwner is the native side of an object handle: the clone and free
// symbols of one object type.
type HandleOwner interface {
	CloneHandle(h uint64) uint64
	FreeHandle(h uint64)
}

// Handle is the ownership-tracking proxy around a native object handle.
// Every use lowers a fresh clone so that Release on another goroutine
// cannot free the handle out from under an in-flight call.
type Handle struct {
	raw      uint64
	owner    HandleOwner
	released atomic.Bool
}

// NewHandle wraps a handle the caller now owns.
func NewHandle(owner HandleOwner, raw uint64) *Handle {
	return &Handle{raw: raw, owner: owner}
}

// Clone returns a new owned copy of the raw handle for one call.
func (h *Handle) Clone() (uint64, error) {
	if h.released.Load() {
		return 0, errs.New(errs.PhaseEncode, errs.KindReleased).Detail("handle %#x already released", h.raw).Build()
	}
	return h.owner.CloneHandle(h.raw), nil
}

// Release frees the handle. Only the first call reaches the owner.
func (h *Handle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.owner.FreeHandle(h.raw)
	}
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	return h.released.Load()
}

// Detached is an owner whose handles are plain values: clones return the
// same handle and frees do nothing. It serves layout computations that
// never reach a native library.
var Detached HandleOwner = detachedOwner{}

type detachedOwner struct{}

func (detachedOwner) CloneHandle(h uint64) uint64 { return h }

func (detachedOwner) FreeHandle(uint64) {}

type objectCodec struct {
	name  string
	owner HandleOwner
}

// Object encodes an 8-byte handle. Write lowers a clone of a *Handle; Read
// wraps the received handle in a new *Handle owned by the caller.
func Object(name string, owner HandleOwner) Codec {
	return &objectCodec{name: name, owner: owner}
}

func (c *objectCodec) Name() string { return c.name }

func (c *objectCodec) Write(w *Writer, v any) error {
	h, ok := v.(*Handle)
	if !ok {
		return errs.TypeMismatch(errs.PhaseEncode, "*Handle", v)
	}
	raw, err := h.Clone()
	if err != nil {
		return err
	}
	w.Uint64(raw)
	return nil
}

func (c *objectCodec) Read(r *Reader) (any, error) {
	raw, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return NewHandle(c.owner, raw), nil
}

func (c *objectCodec) AllocationSize(any) (int, error) { return 8, nil }

func (c *objectCodec) FixedSize() (int, bool) { return 8, true }

// HandleMap stores foreign-implemented callback objects. Handles are odd
// (starting at 1, step 2) so they never collide with native handles, which
// are even pointers.
type HandleMap struct {
	mu     sync.Mutex
	next   uint64
	values map[uint64]any
}

// NewHandleMap creates an empty map.
func NewHandleMap() *HandleMap {
	return &HandleMap{next: 1, values: make(map[uint64]any)}
}

// Insert stores v and returns its handle.
func (m *HandleMap) Insert(v any) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.next
	m.next += 2
	m.values[h] = v
	return h
}

// Get returns the object stored under h.
func (m *HandleMap) Get(h uint64) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[h]
	if !ok {
		return nil, errs.New(errs.PhaseDecode, errs.KindReleased).Detail("unknown callback handle %d", h).Build()
	}
	return v, nil
}

// Clone registers another reference to the object under h.
func (m *HandleMap) Clone(h uint64) (uint64, error) {
	v, err := m.Get(h)
	if err != nil {
		return 0, err
	}
	return m.Insert(v), nil
}

// Remove drops h and returns the object it held.
func (m *HandleMap) Remove(h uint64) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[h]
	if !ok {
		return nil, errs.New(errs.PhaseDecode, errs.KindReleased).Detail("unknown callback handle %d", h).Build()
	}
	delete(m.values, h)
	return v, nil
}

// Len returns the number of live handles.
func (m *HandleMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

type callbackCodec struct {
	name    string
	handles *HandleMap
	owner   HandleOwner
}

// CallbackInterface encodes an 8-byte handle for an interface that either
// side may implement. A *Handle is a native implementation and is lowered
// as a clone; any other value is a foreign implementation and is stored in
// the handle map. Read resolves odd handles through the map and wraps even
// ones in a *Handle.
func CallbackInterface(name string, handles *HandleMap, owner HandleOwner) Codec {
	return &callbackCodec{name: name, handles: handles, owner: owner}
}

func (c *callbackCodec) Name() string { return c.name }

func (c *callbackCodec) Write(w *Writer, v any) error {
	if v == nil {
		return errs.TypeMismatch(errs.PhaseEncode, c.name+" implementation", v)
	}
	if h, ok := v.(*Handle); ok {
		raw, err := h.Clone()
		if err != nil {
			return err
		}
		w.Uint64(raw)
		return nil
	}
	w.Uint64(c.handles.Insert(v))
	return nil
}

func (c *callbackCodec) Read(r *Reader) (any, error) {
	raw, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	if raw&1 == 1 {
		return c.handles.Remove(raw)
	}
	return NewHandle(c.owner, raw), nil
}

func (c *callbackCodec) AllocationSize(any) (int, error) { return 8, nil }

func (c *callbackCodec) FixedSize() (int, bool) { return 8, true }
