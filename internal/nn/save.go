package nn

import (
	"fmt"

	"github.com/born-ml/param/internal/serialization"
	"github.com/born-ml/param/internal/tensor"
)

// gradFlagger is implemented by Registry and every module embedding it.
type gradFlagger interface {
	GradFlags() map[string]bool
	SetGradFlags(flags map[string]bool)
}

// GradFlagsOf returns the requires-grad flag of each parameter of m by name.
func GradFlagsOf[B tensor.Backend](m Module[B]) map[string]bool {
	if g, ok := m.(gradFlagger); ok {
		return g.GradFlags()
	}
	flags := make(map[string]bool)
	for _, np := range m.NamedParameters() {
		flags[np.Name] = np.Param.RequiresGrad()
	}
	return flags
}

func applyGradFlags[B tensor.Backend](m Module[B], flags map[string]bool) {
	if g, ok := m.(gradFlagger); ok {
		g.SetGradFlags(flags)
		return
	}
	for _, np := range m.NamedParameters() {
		if flag, ok := flags[np.Name]; ok {
			np.Param.SetRequiresGrad(flag)
		}
	}
}

// Save writes m's state dict and requires-grad flags to a .born file.
// Tags and gradient hooks are not stored.
//
//	err := nn.Save(model, "model.born", "Linear", map[string]string{"dataset": "mnist"})
func Save[B tensor.Backend](m Module[B], path, modelType string, metadata map[string]string) error {
	return writeFile(path, m.StateDict(), GradFlagsOf(m), serialization.Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// Load restores data and requires-grad flags from a .born file into m and
// returns the file header. Tags on m's parameters are left as they are.
func Load[B tensor.Backend](path string, backend B, m Module[B]) (serialization.Header, error) {
	state, err := readFile(path, backend)
	if err != nil {
		return serialization.Header{}, err
	}
	if err := loadInto(m, state.tensors, state.gradFlags); err != nil {
		return serialization.Header{}, err
	}
	return state.header, nil
}

// fileState is the decoded content of a .born file.
type fileState struct {
	header    serialization.Header
	tensors   map[string]*tensor.RawTensor
	gradFlags map[string]bool
}

// loadInto copies tensors into m and then applies the grad flags, so a
// failed load leaves the flags untouched.
func loadInto[B tensor.Backend](m Module[B], tensors map[string]*tensor.RawTensor, gradFlags map[string]bool) error {
	if err := m.LoadStateDict(tensors); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	applyGradFlags(m, gradFlags)
	return nil
}

func writeFile(path string, stateDict map[string]*tensor.RawTensor, gradFlags map[string]bool, header serialization.Header) (err error) {
	writer, err := serialization.NewBornWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return writer.WriteStateDict(stateDict, gradFlags, header)
}

func readFile[B tensor.Backend](path string, backend B) (*fileState, error) {
	reader, err := serialization.NewBornReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	tensors, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, err
	}
	return &fileState{
		header:    reader.Header(),
		tensors:   tensors,
		gradFlags: reader.GradFlags(),
	}, nil
}
