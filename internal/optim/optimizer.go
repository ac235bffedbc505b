// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers read gradients from the parameters themselves (Parameter.Grad)
// and honor each parameter's requires-grad flag and tags:
//
//	"lr_scale"     float  multiplies the learning rate for this parameter
//	"weight_decay" float  adds L2 decay (grad += wd * param)
//	"optimizer"    string "frozen" excludes the parameter from updates
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01}, backend)
//
//	for step := range steps {
//	    for _, p := range model.Parameters() {
//	        p.SetGrad(computeGrad(p))
//	    }
//	    optimizer.Step()
//	    optimizer.ZeroGrad()
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/tensor"
)

// Tag keys understood by the optimizers.
const (
	TagLRScale     = "lr_scale"
	TagWeightDecay = "weight_decay"
	TagOptimizer   = "optimizer"

	// FrozenTag is the TagOptimizer value that excludes a parameter.
	FrozenTag = "frozen"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers update model parameters based on their gradients to
// minimize the loss function during training.
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Parameters that do not require gradients, have no gradient,
	// or are tagged frozen are left untouched.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

var (
	_ Optimizer         = (*SGD[tensor.Backend])(nil)
	_ Optimizer         = (*Adam[tensor.Backend])(nil)
	_ nn.OptimizerState = (*SGD[tensor.Backend])(nil)
	_ nn.OptimizerState = (*Adam[tensor.Backend])(nil)
)

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}

// rule is the per-parameter update policy derived from tags.
type rule struct {
	lrScale     float32
	weightDecay float32
}

// ruleFor reports whether param takes part in this step and with which policy.
// defaultDecay applies when the parameter has no weight_decay tag.
func ruleFor[B tensor.Backend](param *nn.Parameter[B], defaultDecay float32) (rule, bool) {
	if param == nil || !param.RequiresGrad() || param.Grad() == nil {
		return rule{}, false
	}
	if v, ok := param.Tag(TagOptimizer); ok && v == FrozenTag {
		return rule{}, false
	}

	r := rule{lrScale: 1, weightDecay: defaultDecay}
	if v, ok := param.Tag(TagLRScale); ok {
		if f, ok := tagFloat(v); ok {
			r.lrScale = f
		}
	}
	if v, ok := param.Tag(TagWeightDecay); ok {
		if f, ok := tagFloat(v); ok {
			r.weightDecay = f
		}
	}
	return r, true
}

// tagFloat accepts the numeric forms a tag value can take after decoding.
func tagFloat(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	case int64:
		return float32(x), true
	default:
		return 0, false
	}
}

// gradient returns param's gradient with weight decay applied.
func gradient[B tensor.Backend](param *nn.Parameter[B], weightDecay float32) []float32 {
	grad := param.Grad().Data()
	data := param.Tensor().Data()
	if len(grad) != len(data) {
		panic(fmt.Sprintf("optim: gradient for %q has %d elements, parameter has %d", param.Name(), len(grad), len(data)))
	}
	if weightDecay == 0 {
		return grad
	}

	g := make([]float32, len(grad))
	for i := range grad {
		g[i] = grad[i] + weightDecay*data[i]
	}
	return g
}

// loadState copies a saved state tensor into a fresh buffer shaped like param.
func loadState[B tensor.Backend](param *nn.Parameter[B], raw *tensor.RawTensor, backend B, what string, index int) (*tensor.Tensor[float32, B], error) {
	if !raw.Shape().Equal(param.Tensor().Shape()) {
		return nil, fmt.Errorf("%s shape mismatch for parameter %d: expected %v, got %v",
			what, index, param.Tensor().Shape(), raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%s dtype mismatch for parameter %d: expected float32, got %v", what, index, raw.DType())
	}
	buf := tensor.Zeros[float32](param.Tensor().Shape(), backend)
	copy(buf.Data(), tensor.Values[float32](raw))
	return buf, nil
}

// base carries what SGD and Adam share: the parameter list, the learning
// rate and the default decay for untagged parameters.
type base[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	weightDecay float32
	backend     B
}

// ZeroGrad clears the gradient of every parameter, frozen ones included.
func (o *base[B]) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *base[B]) GetLR() float32 { return o.lr }

// SetLR changes the base learning rate, e.g. from a scheduler.
func (o *base[B]) SetLR(lr float32) { o.lr = lr }

// each calls update for every parameter taking part in this step, with
// its decayed gradient and tag-scaled learning rate.
func (o *base[B]) each(update func(p *nn.Parameter[B], grad []float32, lr float32)) {
	for _, p := range o.params {
		r, ok := ruleFor(p, o.weightDecay)
		if !ok {
			continue
		}
		update(p, gradient(p, r.weightDecay), o.lr*r.lrScale)
	}
}

// buffers is one kind of per-parameter state, such as a momentum buffer.
// In a state dict entry i is stored under "<key>.<i>", i being the
// parameter's position in the optimizer's list.
type buffers[B tensor.Backend] struct {
	key     string
	what    string
	byParam map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
}

func newBuffers[B tensor.Backend](key, what string) *buffers[B] {
	return &buffers[B]{key: key, what: what, byParam: make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])}
}

// of returns p's buffer, allocating a zero one on first use.
func (s *buffers[B]) of(p *nn.Parameter[B], backend B) []float32 {
	buf, ok := s.byParam[p]
	if !ok {
		buf = tensor.Zeros[float32](p.Tensor().Shape(), backend)
		s.byParam[p] = buf
	}
	return buf.Data()
}

func (s *buffers[B]) export(params []*nn.Parameter[B], into map[string]*tensor.RawTensor) {
	for i, p := range params {
		if buf, ok := s.byParam[p]; ok {
			into[fmt.Sprintf("%s.%d", s.key, i)] = buf.Raw()
		}
	}
}

// parse validates the buffers found in stateDict without installing them.
// Missing entries are allocated again on the next step.
func (s *buffers[B]) parse(params []*nn.Parameter[B], stateDict map[string]*tensor.RawTensor, backend B) (map[*nn.Parameter[B]]*tensor.Tensor[float32, B], error) {
	loaded := make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])
	for i, p := range params {
		raw, ok := stateDict[fmt.Sprintf("%s.%d", s.key, i)]
		if !ok {
			continue
		}
		buf, err := loadState(p, raw, backend, s.what, i)
		if err != nil {
			return nil, err
		}
		loaded[p] = buf
	}
	return loaded, nil
}
