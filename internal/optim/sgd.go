package optim

import (
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum:
//
//	v = momentum*v + g    (only with momentum)
//	p = p - lr*v          (v = g without momentum)
//
// lr is scaled per parameter by its lr_scale tag, and g includes the
// parameter's L2 weight decay.
//
//	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9}, backend)
type SGD[B tensor.Backend] struct {
	base[B]
	momentum   float32
	velocities *buffers[B]
}

// SGDConfig configures NewSGD.
type SGDConfig struct {
	LR          float32 // default 0.01
	Momentum    float32 // in [0, 1); 0 disables the velocity buffers
	WeightDecay float32 // for parameters without a weight_decay tag
}

// NewSGD returns an SGD optimizer over params.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		base:       base[B]{params: params, lr: config.LR, weightDecay: config.WeightDecay, backend: backend},
		momentum:   config.Momentum,
		velocities: newBuffers[B]("velocity", "velocity"),
	}
}

// Step updates every parameter that requires grad, has a gradient and is
// not tagged frozen.
func (s *SGD[B]) Step() {
	s.each(func(p *nn.Parameter[B], grad []float32, lr float32) {
		data := p.Tensor().Data()
		if s.momentum == 0 {
			for i, g := range grad {
				data[i] -= lr * g
			}
			return
		}
		v := s.velocities.of(p, s.backend)
		for i, g := range grad {
			v[i] = s.momentum*v[i] + g
			data[i] -= lr * v[i]
		}
	})
}

// StateDict exports the velocity buffers as "velocity.<i>". It is empty
// without momentum or before the first step.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	if s.momentum != 0 {
		s.velocities.export(s.params, state)
	}
	return state
}

// LoadStateDict restores velocity buffers, checking each against its
// parameter's shape. Without momentum the state is ignored.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if s.momentum == 0 {
		return nil
	}
	loaded, err := s.velocities.parse(s.params, stateDict, s.backend)
	if err != nil {
		return err
	}
	s.velocities.byParam = loaded
	return nil
}

func (s *SGD[B]) Type() string { return "SGD" }

// Config reports the hyperparameters recorded in checkpoint headers.
func (s *SGD[B]) Config() map[string]any {
	return map[string]any{
		"lr":           s.lr,
		"momentum":     s.momentum,
		"weight_decay": s.weightDecay,
	}
}
