package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/param/internal/tensor"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registration and loading errors.
var (
	ErrInvalidName       = errors.New("invalid attribute name")
	ErrDuplicateName     = errors.New("attribute already registered")
	ErrMissingKey        = errors.New("missing key in state dict")
	ErrUnexpectedKey     = errors.New("unexpected key in state dict")
	ErrStateDictMismatch = errors.New("state dict entry does not match")
)

// Registry holds a module's named parameters, buffers and sub-modules in
// registration order. Embed it in a struct to make that struct a Module.
//
// Only values passed to RegisterParameter are parameters. A tensor stored
// with RegisterBuffer is module state (it is saved and loaded) but is never
// returned by Parameters and never seen by an optimizer.
//
// The zero value is ready to use.
type Registry[B tensor.Backend] struct {
	params  *orderedmap.OrderedMap[string, *Parameter[B]]
	buffers *orderedmap.OrderedMap[string, *tensor.Tensor[float32, B]]
	modules *orderedmap.OrderedMap[string, Container[B]]
}

// NewRegistry returns an empty registry.
func NewRegistry[B tensor.Backend]() *Registry[B] {
	r := &Registry[B]{}
	r.lazyInit()
	return r
}

func (r *Registry[B]) lazyInit() {
	if r.params == nil {
		r.params = orderedmap.New[string, *Parameter[B]]()
		r.buffers = orderedmap.New[string, *tensor.Tensor[float32, B]]()
		r.modules = orderedmap.New[string, Container[B]]()
	}
}

// Base returns r. It lets any struct embedding Registry satisfy Container.
func (r *Registry[B]) Base() *Registry[B] {
	r.lazyInit()
	return r
}

func (r *Registry[B]) checkName(name string) error {
	r.lazyInit()
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	_, inParams := r.params.Get(name)
	_, inBuffers := r.buffers.Get(name)
	_, inModules := r.modules.Get(name)
	if inParams || inBuffers || inModules {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

// RegisterParameter adds p to the module under name.
//
// A nil p reserves the name without adding a parameter. An unnamed p takes
// name as its own.
func (r *Registry[B]) RegisterParameter(name string, p *Parameter[B]) error {
	if err := r.checkName(name); err != nil {
		return err
	}
	if p != nil && p.Name() == "" {
		p.SetName(name)
	}
	r.params.Set(name, p)
	return nil
}

// RegisterBuffer adds a plain tensor to the module state under name.
func (r *Registry[B]) RegisterBuffer(name string, t *tensor.Tensor[float32, B]) error {
	if err := r.checkName(name); err != nil {
		return err
	}
	r.buffers.Set(name, t)
	return nil
}

// RegisterModule nests m under name. Its entries are reported as "name.<entry>".
func (r *Registry[B]) RegisterModule(name string, m Container[B]) error {
	if err := r.checkName(name); err != nil {
		return err
	}
	r.modules.Set(name, m)
	return nil
}

// Parameter returns the parameter registered directly under name.
func (r *Registry[B]) Parameter(name string) (*Parameter[B], bool) {
	r.lazyInit()
	return r.params.Get(name)
}

// Buffer returns the buffer registered directly under name.
func (r *Registry[B]) Buffer(name string) (*tensor.Tensor[float32, B], bool) {
	r.lazyInit()
	return r.buffers.Get(name)
}

// Module returns the sub-module registered directly under name.
func (r *Registry[B]) Module(name string) (Container[B], bool) {
	r.lazyInit()
	return r.modules.Get(name)
}

// walk visits every non-nil parameter and buffer with its dotted name,
// including repeated occurrences of shared values.
func (r *Registry[B]) walk(prefix string, onParam func(string, *Parameter[B]), onBuffer func(string, *tensor.Tensor[float32, B])) {
	r.lazyInit()
	for pair := r.params.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil && onParam != nil {
			onParam(prefix+pair.Key, pair.Value)
		}
	}
	for pair := r.buffers.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil && onBuffer != nil {
			onBuffer(prefix+pair.Key, pair.Value)
		}
	}
	for pair := r.modules.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Base().walk(prefix+pair.Key+".", onParam, onBuffer)
	}
}

// NamedParameters returns each parameter once, under the first name it was
// reached by.
func (r *Registry[B]) NamedParameters() []NamedParameter[B] {
	seen := make(map[*Parameter[B]]struct{})
	named := make([]NamedParameter[B], 0)
	r.walk("", func(name string, p *Parameter[B]) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		named = append(named, NamedParameter[B]{Name: name, Param: p})
	}, nil)
	return named
}

// Parameters returns all registered parameters, each exactly once.
func (r *Registry[B]) Parameters() []*Parameter[B] {
	named := r.NamedParameters()
	params := make([]*Parameter[B], len(named))
	for i, np := range named {
		params[i] = np.Param
	}
	return params
}

// TrainableParameters returns the parameters that require gradients.
func (r *Registry[B]) TrainableParameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, p := range r.Parameters() {
		if p.RequiresGrad() {
			params = append(params, p)
		}
	}
	return params
}

// StateDict returns parameter data and buffers keyed by dotted name.
//
// A parameter shared under several names appears under each of them.
// Tags and hooks are not module state and are never included.
func (r *Registry[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	r.walk("",
		func(name string, p *Parameter[B]) { stateDict[name] = p.Tensor().Raw() },
		func(name string, t *tensor.Tensor[float32, B]) { stateDict[name] = t.Raw() },
	)
	return stateDict
}

// GradFlags returns the requires-grad flag of every parameter by dotted name.
func (r *Registry[B]) GradFlags() map[string]bool {
	flags := make(map[string]bool)
	r.walk("", func(name string, p *Parameter[B]) { flags[name] = p.RequiresGrad() }, nil)
	return flags
}

// SetGradFlags applies requires-grad flags by dotted name. Unknown names are ignored.
func (r *Registry[B]) SetGradFlags(flags map[string]bool) {
	r.walk("", func(name string, p *Parameter[B]) {
		if flag, ok := flags[name]; ok {
			p.SetRequiresGrad(flag)
		}
	}, nil)
}

// LoadStateDict copies values from stateDict into the existing storage of
// every parameter and buffer.
//
// Every entry of StateDict must be present with the same shape and a
// float32 dtype, and stateDict must not contain other keys.
func (r *Registry[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	var firstErr error
	expected := make(map[string]struct{})
	load := func(name string, dst *tensor.Tensor[float32, B]) {
		expected[name] = struct{}{}
		if firstErr != nil {
			return
		}
		firstErr = loadTensor(name, dst, stateDict)
	}

	r.walk("",
		func(name string, p *Parameter[B]) { load(name, p.Tensor()) },
		func(name string, t *tensor.Tensor[float32, B]) { load(name, t) },
	)
	if firstErr != nil {
		return firstErr
	}

	for name := range stateDict {
		if _, ok := expected[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnexpectedKey, name)
		}
	}
	return nil
}

// loadTensor copies stateDict[name] into dst in logical order, so strided
// sources and targets keep their values.
func loadTensor[B tensor.Backend](name string, dst *tensor.Tensor[float32, B], stateDict map[string]*tensor.RawTensor) error {
	src, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingKey, name)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%w: %q shape: expected %v, got %v", ErrStateDictMismatch, name, dst.Shape(), src.Shape())
	}
	if src.DType() != tensor.Float32 {
		return fmt.Errorf("%w: %q dtype: expected float32, got %v", ErrStateDictMismatch, name, src.DType())
	}
	tensor.CopyValues[float32](dst.Raw(), src)
	return nil
}

// DeepCopy returns a copy of the registry tree made through memo.
//
// Parameters and buffers get independent storage. A value reachable under
// several names (or from several modules) is copied once and stays shared
// in the result. A nil memo starts a fresh traversal.
func (r *Registry[B]) DeepCopy(memo *CopyMemo) *Registry[B] {
	if memo == nil {
		memo = NewCopyMemo()
	}
	if c, ok := memo.Lookup(r); ok {
		return c.(*Registry[B])
	}

	r.lazyInit()
	result := NewRegistry[B]()
	memo.Store(r, result)

	for pair := r.params.Oldest(); pair != nil; pair = pair.Next() {
		var copied *Parameter[B]
		if pair.Value != nil {
			copied = pair.Value.DeepCopy(memo)
		}
		result.params.Set(pair.Key, copied)
	}
	for pair := r.buffers.Oldest(); pair != nil; pair = pair.Next() {
		var copied *tensor.Tensor[float32, B]
		if pair.Value != nil {
			copied = deepCopyTensor(pair.Value, memo)
		}
		result.buffers.Set(pair.Key, copied)
	}
	for pair := r.modules.Oldest(); pair != nil; pair = pair.Next() {
		result.modules.Set(pair.Key, deepCopyContainer(pair.Value, memo))
	}
	return result
}

// DeepCopyModule implements ModuleCopier for a bare registry.
func (r *Registry[B]) DeepCopyModule(memo *CopyMemo) Container[B] {
	return r.DeepCopy(memo)
}

func deepCopyContainer[B tensor.Backend](m Container[B], memo *CopyMemo) Container[B] {
	if c, ok := memo.Lookup(m); ok {
		return c.(Container[B])
	}
	var copied Container[B]
	if copier, ok := m.(ModuleCopier[B]); ok {
		copied = copier.DeepCopyModule(memo)
	} else {
		copied = m.Base().DeepCopy(memo)
	}
	memo.Store(m, copied)
	return copied
}
