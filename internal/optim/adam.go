package optim

import (
	"cmp"
	"fmt"
	"math"

	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/tensor"
)

// Adam keeps bias-corrected running moments of each gradient (Kingma & Ba, 2014):
//
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g*g
//	p = p - lr * (m/(1-beta1^t)) / (sqrt(v/(1-beta2^t)) + eps)
//
// The lr_scale and weight_decay tags apply as for SGD.
type Adam[B tensor.Backend] struct {
	base[B]
	beta1, beta2 float32
	eps          float32
	t            int
	m, v         *buffers[B]
}

// AdamConfig configures NewAdam. Zero fields take the defaults shown.
type AdamConfig struct {
	LR          float32    // 1e-3
	Betas       [2]float32 // 0.9, 0.999
	Eps         float32    // 1e-8
	WeightDecay float32    // for parameters without a weight_decay tag
}

func (c *AdamConfig) withDefaults() {
	c.LR = cmp.Or(c.LR, 1e-3)
	c.Betas[0] = cmp.Or(c.Betas[0], 0.9)
	c.Betas[1] = cmp.Or(c.Betas[1], 0.999)
	c.Eps = cmp.Or(c.Eps, 1e-8)
}

// NewAdam returns an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	config.withDefaults()
	return &Adam[B]{
		base:  base[B]{params: params, lr: config.LR, weightDecay: config.WeightDecay, backend: backend},
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		m:     newBuffers[B]("m", "first moment"),
		v:     newBuffers[B]("v", "second moment"),
	}
}

// Step advances the timestep and updates every participating parameter.
func (a *Adam[B]) Step() {
	a.t++
	c1 := float32(1 - math.Pow(float64(a.beta1), float64(a.t)))
	c2 := float32(1 - math.Pow(float64(a.beta2), float64(a.t)))

	a.each(func(p *nn.Parameter[B], grad []float32, lr float32) {
		m := a.m.of(p, a.backend)
		v := a.v.of(p, a.backend)
		data := p.Tensor().Data()
		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			vHat := float64(v[i] / c2)
			data[i] -= lr * (m[i] / c1) / (float32(math.Sqrt(vHat)) + a.eps)
		}
	})
}

// GetTimestep returns the number of steps taken.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// StateDict exports "step" (a one-element int64 tensor) and the moment
// buffers as "m.<i>" and "v.<i>".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	step, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int64, a.backend.Device())
	if err != nil {
		panic(err)
	}
	step.AsInt64()[0] = int64(a.t)

	state := map[string]*tensor.RawTensor{"step": step}
	a.m.export(a.params, state)
	a.v.export(a.params, state)
	return state
}

// LoadStateDict restores the timestep and both moments. Nothing changes
// unless every entry is valid.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t := 0
	if step, ok := stateDict["step"]; ok {
		if step.DType() != tensor.Int64 || step.NumElements() != 1 {
			return fmt.Errorf("step must be a single int64, got %v %v", step.DType(), step.Shape())
		}
		t = int(step.AsInt64()[0])
	}
	m, err := a.m.parse(a.params, stateDict, a.backend)
	if err != nil {
		return err
	}
	v, err := a.v.parse(a.params, stateDict, a.backend)
	if err != nil {
		return err
	}

	a.t, a.m.byParam, a.v.byParam = t, m, v
	return nil
}

func (a *Adam[B]) Type() string { return "Adam" }

// Config reports the hyperparameters recorded in checkpoint headers.
func (a *Adam[B]) Config() map[string]any {
	return map[string]any{
		"lr":           a.lr,
		"betas":        []float32{a.beta1, a.beta2},
		"eps":          a.eps,
		"weight_decay": a.weightDecay,
	}
}
