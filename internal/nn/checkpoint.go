package nn

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/born-ml/param/internal/serialization"
	"github.com/born-ml/param/internal/tensor"
)

// optimizerPrefix namespaces optimizer entries inside a checkpoint file.
const optimizerPrefix = "optimizer."

// ErrNotCheckpoint is returned by LoadCheckpoint for plain model files.
var ErrNotCheckpoint = errors.New("file is not a checkpoint")

// OptimizerState is the part of an optimizer a checkpoint needs. It lives
// here so nn does not import optim.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	GetLR() float32
}

// optimizerDescriber reports the optimizer's name and hyperparameters for
// the checkpoint header.
type optimizerDescriber interface {
	Type() string
	Config() map[string]any
}

// Checkpoint is a model plus optimizer snapshot with training progress.
//
// The file holds the model's state dict and grad flags, the optimizer's
// buffers under "optimizer.", and Epoch, Step, Loss and Metadata in the
// header. Parameter tags are not part of it.
//
//	ckpt := &nn.Checkpoint[*cpu.CPUBackend]{Model: model, Optimizer: opt, Epoch: 10, Step: 5000}
//	err := ckpt.Save("epoch10.born")
//
//	ckpt, err = nn.LoadCheckpoint("epoch10.born", backend, model, opt)
//	next := ckpt.Epoch + 1
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]
	Optimizer OptimizerState
	Epoch     int
	Step      int64
	Loss      float64
	Metadata  map[string]any
	CreatedAt time.Time
}

// Save writes the checkpoint to path.
func (c *Checkpoint[B]) Save(path string) error {
	combined := c.Model.StateDict()
	for name := range combined {
		if strings.HasPrefix(name, optimizerPrefix) {
			return fmt.Errorf("model entry %q collides with the optimizer namespace", name)
		}
	}
	combined = maps.Clone(combined)
	for name, raw := range c.Optimizer.StateDict() {
		combined[optimizerPrefix+name] = raw
	}

	if err := writeFile(path, combined, GradFlagsOf(c.Model), c.header()); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func (c *Checkpoint[B]) header() serialization.Header {
	meta := &serialization.CheckpointMeta{
		IsCheckpoint:    true,
		Epoch:           c.Epoch,
		Step:            c.Step,
		Loss:            c.Loss,
		OptimizerType:   "Optimizer",
		OptimizerConfig: map[string]any{"lr": c.Optimizer.GetLR()},
		TrainingMeta:    c.Metadata,
	}
	if d, ok := c.Optimizer.(optimizerDescriber); ok {
		meta.OptimizerType = d.Type()
		meta.OptimizerConfig = d.Config()
	}

	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return serialization.Header{ModelType: "Checkpoint", CreatedAt: created, CheckpointMeta: meta}
}

// LoadCheckpoint restores model and optimizer from a checkpoint file.
//
// Both must already have the architecture and configuration they were
// saved with. Model data and requires-grad flags are restored; parameter
// tags are left untouched.
func LoadCheckpoint[B tensor.Backend](path string, backend B, model Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	state, err := readFile(path, backend)
	if err != nil {
		return nil, err
	}
	meta := state.header.CheckpointMeta
	if !state.header.IsCheckpoint() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotCheckpoint)
	}

	modelState := make(map[string]*tensor.RawTensor, len(state.tensors))
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range state.tensors {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := loadInto(model, modelState, state.gradFlags); err != nil {
		return nil, err
	}
	if err := optimizer.LoadStateDict(optimizerState); err != nil {
		return nil, fmt.Errorf("failed to load optimizer state: %w", err)
	}

	return &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     meta.Epoch,
		Step:      meta.Step,
		Loss:      meta.Loss,
		Metadata:  meta.TrainingMeta,
		CreatedAt: state.header.CreatedAt,
	}, nil
}

// SaveCheckpoint saves model and optimizer with only the epoch recorded.
func SaveCheckpoint[B tensor.Backend](path string, model Module[B], optimizer OptimizerState, epoch int) error {
	ckpt := &Checkpoint[B]{Model: model, Optimizer: optimizer, Epoch: epoch}
	return ckpt.Save(path)
}
