// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/param/internal/tensor"

// Backend reports where a tensor's storage lives. backend/cpu is the only
// implementation in this module.
type Backend = tensor.Backend
