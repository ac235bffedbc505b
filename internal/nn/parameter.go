package nn

import (
	"fmt"

	"github.com/born-ml/param/internal/tensor"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ParameterBanner is the first line of a Parameter's string form.
const ParameterBanner = "Parameter containing:\n"

// Tags carries free-form metadata about a parameter, e.g. which optimizer
// rule applies to it. Tags are never part of a module's state dict.
type Tags map[string]any

// GradHook is called when a gradient is assigned to a parameter.
// Returning nil keeps the gradient unchanged.
type GradHook[B tensor.Backend] func(grad *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

// Parameter represents a trainable parameter in a neural network.
//
// A Parameter wraps a tensor without copying it: the parameter and the
// tensor share storage. What distinguishes a parameter from any other
// tensor a module holds is that it is registered as one (see
// Registry.RegisterParameter) and therefore shows up in Parameters,
// StateDict and optimizers.
//
// Example:
//
//	// Create a weight parameter
//	weight := nn.NewParameter(weightTensor, nn.WithName("weight"))
//
//	// Freeze it and tag it for the optimizer
//	bias := nn.NewParameter(biasTensor,
//	    nn.WithRequiresGrad(false),
//	    nn.WithTags(nn.Tags{"weight_decay": 0.0}))
type Parameter[B tensor.Backend] struct {
	name         string                     // Parameter name (e.g., "weight", "bias")
	tensor       *tensor.Tensor[float32, B] // The parameter tensor
	grad         *tensor.Tensor[float32, B] // Gradient tensor (computed during backward pass)
	requiresGrad bool
	tags         Tags
	hooks        *orderedmap.OrderedMap[string, GradHook[B]] // never serialized or copied
}

// ParameterOption configures NewParameter.
type ParameterOption func(*parameterConfig)

type parameterConfig struct {
	name         string
	requiresGrad bool
	tags         Tags
}

// WithName sets the parameter's descriptive name.
func WithName(name string) ParameterOption {
	return func(c *parameterConfig) {
		c.name = name
	}
}

// WithRequiresGrad sets whether the parameter participates in gradient
// computation. The default is true.
func WithRequiresGrad(requiresGrad bool) ParameterOption {
	return func(c *parameterConfig) {
		c.requiresGrad = requiresGrad
	}
}

// WithTags attaches tags to the parameter. The map is stored by reference.
func WithTags(tags Tags) ParameterOption {
	return func(c *parameterConfig) {
		c.tags = tags
	}
}

// NewParameter creates a new trainable parameter wrapping t.
//
// The parameter aliases t's storage and sets t's gradient flag to the
// parameter's. A nil t is replaced by an empty tensor (shape {0}) on the CPU.
//
// Parameters:
//   - t: The initialized parameter tensor, or nil
//   - opts: WithName, WithRequiresGrad (default true), WithTags (default empty)
//
// Returns a new Parameter.
func NewParameter[B tensor.Backend](t *tensor.Tensor[float32, B], opts ...ParameterOption) *Parameter[B] {
	cfg := parameterConfig{requiresGrad: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if t == nil {
		var b B
		t = tensor.Empty[float32](b)
	}
	if cfg.tags == nil {
		cfg.tags = Tags{}
	}
	t.SetRequiresGrad(cfg.requiresGrad)

	return &Parameter[B]{
		name:         cfg.name,
		tensor:       t,
		requiresGrad: cfg.requiresGrad,
		tags:         cfg.tags,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// SetName renames the parameter.
func (p *Parameter[B]) SetName(name string) {
	p.name = name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// RequiresGrad reports whether the parameter participates in gradient computation.
func (p *Parameter[B]) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad freezes or unfreezes the parameter.
// The wrapped tensor's flag follows.
func (p *Parameter[B]) SetRequiresGrad(requiresGrad bool) {
	p.requiresGrad = requiresGrad
	p.tensor.SetRequiresGrad(requiresGrad)
}

// Tags returns the parameter's tag map (not a copy).
func (p *Parameter[B]) Tags() Tags {
	return p.tags
}

// Tag returns a single tag value.
func (p *Parameter[B]) Tag(key string) (any, bool) {
	v, ok := p.tags[key]
	return v, ok
}

// SetTag sets a single tag value.
func (p *Parameter[B]) SetTag(key string, value any) {
	p.tags[key] = value
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
//
// Registered hooks run first, in registration order; each may replace the
// gradient seen by the next one. A nil hook only holds its name.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	if p.hooks != nil && grad != nil {
		for pair := p.hooks.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value == nil {
				continue
			}
			if replaced := pair.Value(grad); replaced != nil {
				grad = replaced
			}
		}
	}
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// RegisterHook adds or replaces the gradient hook stored under name.
// A replaced hook keeps its original position.
func (p *Parameter[B]) RegisterHook(name string, hook GradHook[B]) {
	if p.hooks == nil {
		p.hooks = orderedmap.New[string, GradHook[B]]()
	}
	p.hooks.Set(name, hook)
}

// RemoveHook removes the hook stored under name and reports whether it existed.
func (p *Parameter[B]) RemoveHook(name string) bool {
	if p.hooks == nil {
		return false
	}
	_, ok := p.hooks.Delete(name)
	return ok
}

// Hooks returns the names of registered hooks in call order.
func (p *Parameter[B]) Hooks() []string {
	if p.hooks == nil {
		return nil
	}
	names := make([]string, 0, p.hooks.Len())
	for pair := p.hooks.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// String returns the tensor's own representation under a banner line.
func (p *Parameter[B]) String() string {
	return ParameterBanner + p.tensor.String()
}

// GoString identifies the parameter in %#v output.
func (p *Parameter[B]) GoString() string {
	return fmt.Sprintf("nn.Parameter{name: %q, shape: %v, requiresGrad: %t, tags: %d}",
		p.name, p.tensor.Shape(), p.requiresGrad, len(p.tags))
}
