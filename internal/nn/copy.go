package nn

import "github.com/born-ml/param/internal/tensor"

// CopyMemo records values already copied during one deep-copy traversal,
// keyed by the identity (pointer) of the original.
//
// Passing the same memo through every copy in a traversal preserves shared
// references: an object reachable twice is copied once.
type CopyMemo struct {
	copies map[any]any
}

// NewCopyMemo returns an empty memo.
func NewCopyMemo() *CopyMemo {
	return &CopyMemo{copies: make(map[any]any)}
}

// Lookup returns the copy recorded for original, if any.
func (m *CopyMemo) Lookup(original any) (any, bool) {
	c, ok := m.copies[original]
	return c, ok
}

// Store records copied as the copy of original.
func (m *CopyMemo) Store(original, copied any) {
	m.copies[original] = copied
}

// Len returns the number of recorded copies.
func (m *CopyMemo) Len() int {
	return len(m.copies)
}

// DeepCopy returns a copy of the parameter with independent storage.
//
// If memo already holds a copy of p, that copy is returned. Otherwise the
// copy gets a storage-format-preserving clone of the data, the same
// requires-grad flag, the same name and the same tags map (shared, not
// cloned); it is recorded in memo before being returned. Gradients and
// hooks are not copied. A nil memo starts a fresh traversal.
func (p *Parameter[B]) DeepCopy(memo *CopyMemo) *Parameter[B] {
	if memo == nil {
		memo = NewCopyMemo()
	}
	if c, ok := memo.Lookup(p); ok {
		return c.(*Parameter[B])
	}

	result := NewParameter[B](p.tensor.CloneStorage(),
		WithName(p.name),
		WithRequiresGrad(p.requiresGrad),
		WithTags(p.tags),
	)
	memo.Store(p, result)
	return result
}

// deepCopyTensor copies a plain tensor (a buffer) through memo.
func deepCopyTensor[B tensor.Backend](t *tensor.Tensor[float32, B], memo *CopyMemo) *tensor.Tensor[float32, B] {
	if c, ok := memo.Lookup(t); ok {
		return c.(*tensor.Tensor[float32, B])
	}
	result := t.CloneStorage()
	result.SetRequiresGrad(t.RequiresGrad())
	memo.Store(t, result)
	return result
}
