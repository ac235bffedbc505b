// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/optim"
	"github.com/born-ml/param/tensor"
)

// Parameter tags consulted by Step. A parameter without tags follows the
// optimizer's own configuration.
//
//	head := nn.NewParameter(w, nn.WithTags(nn.Tags{
//	    optim.TagLRScale:     0.1,
//	    optim.TagWeightDecay: 0.0,
//	}))
//	embed.SetTag(optim.TagOptimizer, optim.FrozenTag)
const (
	TagLRScale     = optim.TagLRScale
	TagWeightDecay = optim.TagWeightDecay
	TagOptimizer   = optim.TagOptimizer
	FrozenTag      = optim.FrozenTag
)

type (
	Optimizer  = optim.Optimizer
	Config     = optim.Config
	SGDConfig  = optim.SGDConfig
	AdamConfig = optim.AdamConfig
)

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// Adam is Adam with bias-corrected moments.
type Adam[B tensor.Backend] = optim.Adam[B]

// NewSGD builds an SGD optimizer over params, typically a module's
// Parameters(). Zero LR falls back to 0.01.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// NewAdam builds an Adam optimizer over params. Zero fields take the usual
// defaults (lr 1e-3, betas 0.9/0.999, eps 1e-8).
//
//	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 3e-4}, backend)
//	for range steps {
//	    opt.ZeroGrad()
//	    // forward, backward
//	    opt.Step()
//	}
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}
